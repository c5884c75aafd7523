// SPDX-License-Identifier: MIT

// Package app assembles the capture, analysis and publishing components into
// the live and offline pipelines the commands run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"vocalscan/internal/analysis"
	"vocalscan/internal/audio"
	"vocalscan/internal/config"
	"vocalscan/internal/log"
	"vocalscan/internal/observe"
	"vocalscan/internal/report"
	"vocalscan/internal/sampler"
	"vocalscan/internal/session"
	"vocalscan/internal/transport"
	"vocalscan/internal/transport/udp"
	"vocalscan/pkg/build"
)

// WebSocketPath is where live clients connect.
const WebSocketPath = "/ws"

const shutdownTimeout = 2 * time.Second

// Input is a running audio source feeding the sampler.
type Input interface {
	Start() error
	Stop() error
	DeviceName() string
	Peak() float64
}

type audioWriter = audio.SampleWriter

// openInput opens the capture device; replaced in tests.
var openInput = func(cfg config.AudioConfig, w audioWriter) (Input, error) {
	c, err := audio.NewCapture(cfg, w)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Live is the real-time pipeline: capture into the sampler, a ticking
// session, and the configured outputs.
type Live struct {
	cfg       *config.Config
	Sampler   *sampler.Sampler
	Session   *session.Session
	Input     Input
	ws        *transport.WebSocketTransport
	transport transport.Transport
	provider  *observe.Provider
	sender    *udp.Sender
	publisher *udp.Publisher
	server    *http.Server
}

// NewLive builds the live pipeline from cfg. Nothing runs until Start and
// Serve are called.
func NewLive(ctx context.Context, cfg *config.Config) (*Live, error) {
	l := &Live{cfg: cfg}
	if err := l.init(ctx); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Live) init(ctx context.Context) (err error) {
	cfg := l.cfg

	scfg, err := cfg.SamplerConfig()
	if err != nil {
		return err
	}
	if l.Sampler, err = sampler.New(scfg); err != nil {
		return err
	}

	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		if l.provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: build.GetBuildFlags().Version}); err != nil {
			return fmt.Errorf("failed to initialise metrics: %w", err)
		}
		if metrics, err = observe.NewMetrics(l.provider.MeterProvider); err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	outputs := transport.Multi{transport.NewLoggingTransport(cfg.Transport.LogFrames)}
	if cfg.Transport.WebSocketEnabled {
		l.ws = transport.NewWebSocketTransport()
		outputs = append(outputs, l.ws)
	}
	l.transport = outputs

	if l.Session, err = session.New(l.Sampler, session.Options{
		Params:       cfg.Analysis.Params,
		Gate:         cfg.Analysis.Gate,
		TickInterval: cfg.Session.TickInterval,
		Transport:    l.transport,
		Metrics:      metrics,
		Spectrum:     cfg.Transport.WebSocketSpectrum,
	}); err != nil {
		return err
	}

	if cfg.Transport.UDPEnabled {
		if l.sender, err = udp.NewSender(cfg.Transport.UDPTargetAddress); err != nil {
			return err
		}
		if l.publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, l.Sampler.BinCount(), l.sender, l.Session); err != nil {
			return err
		}
	}

	if l.ws != nil || l.provider != nil {
		l.server = &http.Server{
			Addr:              cfg.Transport.WebSocketAddress,
			Handler:           l.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	l.Input, err = openInput(cfg.Audio, l.Sampler)
	return err
}

// Handler routes the websocket and the metrics endpoint.
func (l *Live) Handler() http.Handler {
	mux := http.NewServeMux()
	if l.ws != nil {
		mux.Handle(WebSocketPath, l.ws)
	}
	if l.provider != nil {
		mux.Handle(l.cfg.Metrics.Path, l.provider.Handler())
	}
	return mux
}

// Serve runs the HTTP server until ctx is done. Without websocket and metrics
// it only waits for ctx.
func (l *Live) Serve(ctx context.Context) error {
	if l.server == nil {
		<-ctx.Done()
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("http: listening on %s (%s, %s)", l.server.Addr, WebSocketPath, l.cfg.Metrics.Path)
		if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return l.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Start opens the input and begins a recording.
func (l *Live) Start() error {
	l.Sampler.Reset()
	if err := l.Input.Start(); err != nil {
		return err
	}
	if err := l.Session.Start(); err != nil {
		_ = l.Input.Stop()
		return err
	}
	if l.publisher != nil {
		l.publisher.Start()
	}
	return nil
}

// Stop ends the recording and returns its summary.
func (l *Live) Stop() (analysis.Summary, error) {
	summary, err := l.Session.Stop()
	if l.publisher != nil {
		l.publisher.Stop()
	}
	if stopErr := l.Input.Stop(); stopErr != nil {
		log.Warnf("%v", stopErr)
	}
	return summary, err
}

// LatestInto returns the last analysed frame of the running session.
func (l *Live) LatestInto(dst []uint8) (analysis.Descriptor, int) {
	return l.Session.LatestInto(dst)
}

// State returns the session state.
func (l *Live) State() session.State { return l.Session.State() }

// Elapsed returns the recording time of the current or last session.
func (l *Live) Elapsed() time.Duration { return l.Session.Elapsed() }

// Peak returns the input peak of the latest capture buffer.
func (l *Live) Peak() float64 { return l.Input.Peak() }

// DeviceName names the capture device.
func (l *Live) DeviceName() string { return l.Input.DeviceName() }

// Report wraps a summary of the last recording.
func (l *Live) Report(summary analysis.Summary) report.Report {
	return report.Report{
		SessionID: l.Session.ID(),
		Source:    l.Input.DeviceName(),
		Duration:  l.Session.Elapsed(),
		Summary:   summary,
	}
}

// Close releases every output. It does not stop a running recording.
func (l *Live) Close() error {
	var errs []error
	if l.publisher != nil {
		errs = append(errs, l.publisher.Close())
	}
	if l.sender != nil {
		errs = append(errs, l.sender.Close())
	}
	if l.transport != nil {
		errs = append(errs, l.transport.Close())
	}
	if l.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, l.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Record runs a headless live session for duration, or until ctx is done when
// duration is zero, then writes the report to w.
func Record(ctx context.Context, cfg *config.Config, duration time.Duration, w io.Writer, asJSON bool) error {
	live, err := NewLive(ctx, cfg)
	if err != nil {
		return err
	}
	defer live.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return live.Serve(gctx) })

	var summary analysis.Summary
	g.Go(func() error {
		defer cancel()
		if err := live.Start(); err != nil {
			return err
		}
		var timeout <-chan time.Time
		if duration > 0 {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-timeout:
		case <-gctx.Done():
		}
		s, err := live.Stop()
		summary = s
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	r := live.Report(summary)
	if asJSON {
		return report.WriteJSON(w, r)
	}
	return report.WriteText(w, r)
}
