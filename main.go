// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vocalscan/cmd"
	"vocalscan/internal/log"
	"vocalscan/pkg/build"
)

// main initialises the build information, then runs the command line until
// it returns or the process receives SIGINT or SIGTERM. Commands that talk to
// the audio hardware initialise PortAudio themselves.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("invalid build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
