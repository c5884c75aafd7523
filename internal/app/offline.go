// SPDX-License-Identifier: MIT
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"vocalscan/internal/config"
	"vocalscan/internal/log"
	"vocalscan/internal/report"
	"vocalscan/internal/sampler"
	"vocalscan/internal/session"
	"vocalscan/internal/source"
	"vocalscan/internal/transport"
)

// AnalyzeOptions control offline analysis.
type AnalyzeOptions struct {
	Concurrency int       // Files analysed in parallel; 0 means GOMAXPROCS.
	Progress    io.Writer // Progress bar destination; nil disables it.
	Registry    *source.Registry
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string
	Report report.Report
	Err    error
}

// AnalyzeFiles analyses every path and returns one result per path, in order.
// Per-file failures are reported in FileResult.Err; the returned error is only
// set when ctx ends the run.
func AnalyzeFiles(ctx context.Context, cfg *config.Config, paths []string, opts AnalyzeOptions) ([]FileResult, error) {
	if opts.Registry == nil {
		opts.Registry = source.NewRegistry()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(paths))
	sources := make([]source.Source, len(paths))
	var total int64
	for i, path := range paths {
		results[i].Path = path
		src, err := opts.Registry.Open(path)
		if err != nil {
			results[i].Err = err
			continue
		}
		sources[i] = src
		if src.Len() > 0 && total >= 0 {
			total += src.Len()
		} else {
			total = -1 // Unknown length shows a spinner.
		}
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("analysing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("samples"),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	progress := func(n int) {
		if bar != nil {
			_ = bar.Add(n)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, src := range sources {
		if src == nil {
			continue
		}
		g.Go(func() error {
			defer src.Close()
			r, err := analyzeSource(gctx, cfg, src, results[i].Path, progress)
			results[i].Report, results[i].Err = r, err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(opts.Progress)
	}
	return results, err
}

// AnalyzeFile analyses one file.
func AnalyzeFile(ctx context.Context, cfg *config.Config, path string) (report.Report, error) {
	src, err := source.NewRegistry().Open(path)
	if err != nil {
		return report.Report{}, err
	}
	defer src.Close()
	return analyzeSource(ctx, cfg, src, path, func(int) {})
}

// analyzeSource replays src through a sampler at the configured tick rate, so
// spectrum smoothing behaves as it does live. Ticks begin once the sampler
// holds a full transform; shorter sources get one zero-padded frame. The
// session clock follows media time.
func analyzeSource(ctx context.Context, cfg *config.Config, src source.Source, name string, progress func(int)) (report.Report, error) {
	scfg, err := cfg.SamplerConfig()
	if err != nil {
		return report.Report{}, err
	}
	scfg.SampleRate = src.SampleRate()
	smp, err := sampler.New(scfg)
	if err != nil {
		return report.Report{}, fmt.Errorf("%s: %w", filepath.Base(name), err)
	}

	var consumed int64
	epoch := time.Unix(0, 0)
	clock := func() time.Time {
		return epoch.Add(time.Duration(float64(consumed) / src.SampleRate() * float64(time.Second)))
	}

	var out transport.Transport = transport.Discard{}
	if cfg.Transport.LogFrames {
		out = transport.NewLoggingTransport(true)
	}
	sess, err := session.New(smp, session.Options{
		Params:       cfg.Analysis.Params,
		Gate:         cfg.Analysis.Gate,
		TickInterval: cfg.Session.TickInterval,
		Transport:    out,
		Clock:        clock,
	})
	if err != nil {
		return report.Report{}, err
	}
	if err := sess.Begin(); err != nil {
		return report.Report{}, err
	}

	hop := max(1, int(math.Round(src.SampleRate()*cfg.Session.TickInterval.Seconds())))
	buf := make([]float64, hop)
	ticks := 0
	for {
		if err := ctx.Err(); err != nil {
			sess.Fail(err)
			return report.Report{}, err
		}
		n, readErr := readChunk(src, buf)
		if n > 0 {
			smp.Write(buf[:n])
			consumed += int64(n)
			progress(n)
			if consumed >= int64(smp.TransformSize()) {
				sess.Tick()
				ticks++
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			sess.Fail(readErr)
			return report.Report{}, fmt.Errorf("%s: %w", filepath.Base(name), readErr)
		}
	}
	if ticks == 0 && consumed > 0 {
		sess.Tick()
	}

	summary, err := sess.Finish()
	if err != nil {
		return report.Report{}, err
	}
	log.Debugf("analysed %s: %d samples at %.0f Hz", name, consumed, src.SampleRate())
	return report.Report{
		SessionID: sess.ID(),
		Source:    name,
		Duration:  sess.Elapsed(),
		Summary:   summary,
	}, nil
}

// readChunk fills buf unless the source ends first.
func readChunk(src source.Source, buf []float64) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}
