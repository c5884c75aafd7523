// SPDX-License-Identifier: MIT
//
// Package build exposes the application name, build time, commit and version
// embedded at link time, for example:
//
//	go build -ldflags "-X vocalscan/pkg/build.buildName=vocalscan \
//	  -X vocalscan/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X vocalscan/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X vocalscan/pkg/build.buildVersion=0.3.0"
//
// Development builds without ldflags report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown in help output.
const Description = "Real-time vocal pitch, loudness and formant analysis"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the flags for --version output.
func (f ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "vocalscan",
		Time:    "dev",
		Commit:  "dev",
		Version: "dev",
	}
)

// Initialize copies the ldflags into the build information. A build without
// any ldflags keeps the development defaults; a build with only some of them
// is rejected.
func Initialize() error {
	set := map[string]string{
		"BuildName":    buildName,
		"BuildTime":    buildTime,
		"BuildCommit":  buildCommit,
		"BuildVersion": buildVersion,
	}
	var missing []error
	for _, name := range []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"} {
		if set[name] == "" {
			missing = append(missing, fmt.Errorf("%s is required", name))
		}
	}
	switch len(missing) {
	case len(set):
		return nil
	case 0:
	default:
		return errors.Join(missing...)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
