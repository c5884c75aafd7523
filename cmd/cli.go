// SPDX-License-Identifier: MIT

// Package cmd defines the vocalscan command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"vocalscan/internal/app"
	"vocalscan/internal/audio"
	"vocalscan/internal/config"
	"vocalscan/internal/log"
	"vocalscan/internal/report"
	"vocalscan/internal/tui"
	"vocalscan/pkg/build"
)

// debugLogFile receives log output while the TUI owns the terminal.
const debugLogFile = "vocalscan.log"

// flags are overrides applied on top of the loaded configuration. Only flags
// given on the command line are applied.
type flags struct {
	configPath      string
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	verbose         bool
	logLevel        string
	wsAddress       string
	noWebSocket     bool
	spectrum        bool
	udpTarget       string
	noMetrics       bool
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "f", "",
		"Path to a YAML configuration file (default ./"+config.DefaultPath+" when present)")

	// Audio device configuration
	fs.IntVarP(&f.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	fs.IntVarP(&f.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to open; channel 0 is analysed")
	fs.Float64VarP(&f.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	fs.IntVarP(&f.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	fs.BoolVarP(&f.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Outputs
	fs.StringVar(&f.wsAddress, "ws-address", config.DefaultWSAddress,
		"Listen address for the WebSocket and metrics endpoints")
	fs.BoolVar(&f.noWebSocket, "no-ws", false, "Disable the WebSocket stream")
	fs.BoolVar(&f.spectrum, "spectrum", false, "Include the quantized spectrum in WebSocket frames")
	fs.StringVar(&f.udpTarget, "udp", "",
		"Stream binary frames to this UDP host:port")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "Disable the Prometheus endpoint")

	// Debug configuration
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Show verbose output")
	fs.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
}

// apply copies the flags that were set on fs into cfg.
func (f *flags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}
	set("device", func() { cfg.Audio.InputDevice = f.deviceID })
	set("channels", func() { cfg.Audio.InputChannels = f.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = f.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })
	set("ws-address", func() { cfg.Transport.WebSocketAddress = f.wsAddress })
	set("no-ws", func() { cfg.Transport.WebSocketEnabled = !f.noWebSocket })
	set("spectrum", func() { cfg.Transport.WebSocketSpectrum = f.spectrum })
	set("udp", func() {
		cfg.Transport.UDPEnabled = f.udpTarget != ""
		cfg.Transport.UDPTargetAddress = f.udpTarget
	})
	set("no-metrics", func() { cfg.Metrics.Enabled = !f.noMetrics })
	set("verbose", func() { cfg.Debug = f.verbose })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
}

// loadConfig reads the configuration file, applies the command line
// overrides and sets the log level.
func (f *flags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}

// withAudio initialises PortAudio around fn.
func withAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			log.Warnf("failed to terminate audio: %v", err)
		}
	}()
	return fn()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &flags{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Long:          build.Description + ".\n\nWithout a command, opens the live meters.",
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withAudio(func() error {
				return runMeters(cmd.Context(), cmd, cfg)
			})
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	opts.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newListCommand(),
		newRecordCommand(opts),
		newAnalyzeCommand(opts),
	)
	return rootCmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"devices"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAudio(func() error {
				return audio.ListDevices(cmd.OutOrStdout())
			})
		},
	}
}

func newRecordCommand(opts *flags) *cobra.Command {
	var (
		duration = config.DefaultRecordDuration
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Analyse the input device without the TUI and print a summary",
		Long: "Analyse the input device without the TUI and print a summary.\n\n" +
			"Frames are streamed to the configured outputs while recording. A zero\n" +
			"duration records until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("duration") {
				cfg.Session.Duration = duration
			}
			if cfg.Session.Duration < 0 {
				return fmt.Errorf("duration must not be negative, got %s", cfg.Session.Duration)
			}
			return withAudio(func() error {
				return app.Record(cmd.Context(), cfg, cfg.Session.Duration, cmd.OutOrStdout(), asJSON)
			})
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "t", duration, "How long to record; 0 records until interrupted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newAnalyzeCommand(opts *flags) *cobra.Command {
	var (
		asJSON      bool
		concurrency int
		noProgress  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyse WAV or FLAC recordings and print a summary per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			var progress io.Writer
			if !noProgress {
				progress = cmd.ErrOrStderr()
			}
			results, err := app.AnalyzeFiles(cmd.Context(), cfg, args, app.AnalyzeOptions{
				Concurrency: concurrency,
				Progress:    progress,
			})
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summaries as JSON")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Files analysed in parallel (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")
	return cmd
}

// writeResults prints every successful report to out and every failure to
// errOut. It fails when any file failed.
func writeResults(out, errOut io.Writer, results []app.FileResult, asJSON bool) error {
	failed := 0
	first := true
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(errOut, "%s: %v\n", res.Path, res.Err)
			continue
		}
		if !first && !asJSON {
			fmt.Fprintln(out)
		}
		first = false
		write := report.WriteText
		if asJSON {
			write = report.WriteJSON
		}
		if err := write(out, res.Report); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analysed", failed, len(results))
	}
	return nil
}

// runMeters optionally picks a device, then runs the live meters and prints
// the final summary once the TUI exits.
func runMeters(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	// The TUI owns the terminal; logs go to a file in debug mode.
	var logOut io.Writer = io.Discard
	if cfg.Debug {
		f, err := os.Create(debugLogFile)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log.SetOutput(logOut)
	defer log.SetOutput(os.Stderr)

	if !cmd.Flags().Changed("device") {
		sel, ok, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid device selection: %w", err)
		}
	}

	live, err := app.NewLive(ctx, cfg)
	if err != nil {
		return err
	}
	defer live.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return live.Serve(gctx) })

	summary, ok, runErr := tui.RunMeters(live, live.Sampler.BinCount())
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	if !ok {
		return nil
	}
	return report.WriteText(cmd.OutOrStdout(), live.Report(summary))
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
