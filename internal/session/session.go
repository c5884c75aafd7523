// SPDX-License-Identifier: MIT

// Package session drives the analysis loop of one recording: it pulls frames
// from the sampler at a fixed rate, analyses them, gates them into an
// accumulator and publishes every result. Finishing the session averages the
// accepted frames into a summary.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocalscan/internal/analysis"
	"vocalscan/internal/log"
	"vocalscan/internal/observe"
	"vocalscan/internal/transport"
)

// DefaultTickInterval runs the analysis at about 60 frames per second.
const DefaultTickInterval = 16 * time.Millisecond

var (
	ErrNotRecording     = errors.New("session is not recording")
	ErrAlreadyRecording = errors.New("session is already recording")
)

// FrameSource supplies analysis frames. The sampler implements it.
type FrameSource interface {
	SampleRate() float64
	TransformSize() int
	AnalysisFrame(time []float64, spectrum []uint8) (analysis.Frame, error)
}

// Options configure a Session. The zero value of each field selects its
// default.
type Options struct {
	Params       analysis.Params
	Gate         analysis.AccumulatorParams
	TickInterval time.Duration
	Transport    transport.Transport
	Metrics      *observe.Metrics
	Spectrum     bool // Attach quantized bins to frame messages.
	Clock        func() time.Time
}

// DefaultOptions returns the reference tuning, a 16ms tick and no outputs.
func DefaultOptions() Options {
	return Options{
		Params:       analysis.DefaultParams(),
		Gate:         analysis.DefaultAccumulatorParams(),
		TickInterval: DefaultTickInterval,
	}
}

// Session is safe for concurrent use. Tick runs on a single goroutine at a
// time; LatestInto may be called from any goroutine.
type Session struct {
	src  FrameSource
	opts Options

	mu       sync.Mutex
	state    State
	id       string
	seq      uint64
	started  time.Time
	ended    time.Time
	analyzer *analysis.Analyzer
	acc      *analysis.Accumulator
	timeBuf  []float64
	specBuf  []uint8

	latestMu   sync.RWMutex
	latest     analysis.Descriptor
	latestSpec []uint8
	latestN    int

	runMu    sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an idle session reading from src.
func New(src FrameSource, opts Options) (*Session, error) {
	if src == nil {
		return nil, errors.New("session: frame source cannot be nil")
	}
	if src.SampleRate() <= 0 || src.TransformSize() <= 0 {
		return nil, fmt.Errorf("session: invalid frame source geometry (%v Hz, %d samples)", src.SampleRate(), src.TransformSize())
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Transport == nil {
		opts.Transport = transport.Discard{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Params == (analysis.Params{}) {
		opts.Params = analysis.DefaultParams()
	}
	if opts.Gate == (analysis.AccumulatorParams{}) {
		opts.Gate = analysis.DefaultAccumulatorParams()
	}

	n := src.TransformSize()
	return &Session{
		src:        src,
		opts:       opts,
		analyzer:   analysis.NewAnalyzer(opts.Params),
		acc:        analysis.NewAccumulator(opts.Gate),
		timeBuf:    make([]float64, n),
		specBuf:    make([]uint8, n/2),
		latestSpec: make([]uint8, n/2),
	}, nil
}

// ID returns the identifier of the current or last session, empty before Begin.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the recording time of the current or last session, or zero
// before the first Begin.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.started.IsZero():
		return 0
	case !s.ended.IsZero():
		return s.ended.Sub(s.started)
	default:
		return s.opts.Clock().Sub(s.started)
	}
}

// Begin starts a new recording with a fresh ID and an empty accumulator.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Recording {
		return ErrAlreadyRecording
	}
	s.id = uuid.NewString()
	s.seq = 0
	s.started = s.opts.Clock()
	s.ended = time.Time{}
	s.acc.Reset()
	s.setState(Recording, nil)

	s.latestMu.Lock()
	s.latestN = 0
	s.latestMu.Unlock()

	s.opts.Metrics.SessionStarted(context.Background())
	log.Infof("session %s: recording", s.id)
	return nil
}

// Tick analyses one frame. It returns false when the session is not recording
// or the frame could not be read.
func (s *Session) Tick() (analysis.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return analysis.Descriptor{}, false
	}

	frame, err := s.src.AnalysisFrame(s.timeBuf, s.specBuf)
	if err != nil {
		s.fail(fmt.Errorf("failed to read frame: %w", err))
		return analysis.Descriptor{}, false
	}

	begin := time.Now()
	d := s.analyzer.Analyze(frame)
	accepted := s.acc.Accept(d)
	s.opts.Metrics.RecordFrame(context.Background(), d, accepted, time.Since(begin))

	s.latestMu.Lock()
	s.latest = d
	s.latestN = copy(s.latestSpec, frame.Spectrum)
	s.latestMu.Unlock()

	s.seq++
	var spectrum []uint8
	if s.opts.Spectrum {
		spectrum = frame.Spectrum
	}
	msg := transport.NewFrameMessage(s.id, s.seq, s.opts.Clock(), d, accepted, spectrum)
	if err := s.opts.Transport.Send(msg); err != nil {
		log.Debugf("session %s: frame %d not delivered: %v", s.id, s.seq, err)
	}
	return d, true
}

// LatestInto copies the last analysed spectrum into dst and returns the last
// descriptor and the number of bins copied. It returns 0 bins before the
// first frame of a session.
func (s *Session) LatestInto(dst []uint8) (analysis.Descriptor, int) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	if s.latestN == 0 {
		return analysis.Descriptor{}, 0
	}
	return s.latest, copy(dst, s.latestSpec[:s.latestN])
}

// Finish ends the recording and returns the averaged summary.
func (s *Session) Finish() (analysis.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return analysis.Summary{}, ErrNotRecording
	}
	s.setState(Processing, nil)
	summary := s.acc.Summarize()
	now := s.opts.Clock()
	s.ended = now
	elapsed := now.Sub(s.started)

	if err := s.opts.Transport.Send(transport.NewSummaryMessage(s.id, now, elapsed, summary)); err != nil {
		log.Warnf("session %s: summary not delivered: %v", s.id, err)
	}
	s.setState(Completed, nil)
	s.opts.Metrics.SessionEnded(context.Background())
	log.Infof("session %s: completed, %d of %d frames accepted in %s",
		s.id, summary.Accepted, summary.Frames, elapsed.Round(time.Millisecond))
	return summary, nil
}

// Fail aborts a recording, e.g. after the capture device went away.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return
	}
	s.fail(err)
}

// fail must be called with mu held while recording.
func (s *Session) fail(err error) {
	log.Errorf("session %s: %v", s.id, err)
	s.ended = s.opts.Clock()
	s.setState(Error, err)
	s.opts.Metrics.SessionEnded(context.Background())
}

// setState must be called with mu held.
func (s *Session) setState(state State, err error) {
	s.state = state
	if sendErr := s.opts.Transport.Send(transport.NewStateMessage(s.id, s.opts.Clock(), state.String(), err)); sendErr != nil {
		log.Debugf("session %s: state %s not delivered: %v", s.id, state, sendErr)
	}
}

// Start begins a recording and ticks it on a background goroutine until Stop.
func (s *Session) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.ticker != nil {
		return ErrAlreadyRecording
	}
	if err := s.Begin(); err != nil {
		return err
	}

	s.ticker = time.NewTicker(s.opts.TickInterval)
	s.doneChan = make(chan struct{})
	s.stopOnce = sync.Once{}
	ticker, doneChan := s.ticker, s.doneChan

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.C:
				if _, ok := s.Tick(); !ok && s.State() != Recording {
					return
				}
			case <-doneChan:
				return
			}
		}
	}()
	return nil
}

// Stop halts the tick goroutine started by Start and finishes the session.
func (s *Session) Stop() (analysis.Summary, error) {
	s.runMu.Lock()
	if s.ticker != nil {
		s.stopOnce.Do(func() {
			close(s.doneChan)
			s.ticker.Stop()
			s.ticker = nil
		})
	}
	s.runMu.Unlock()

	s.wg.Wait()
	return s.Finish()
}

// Run records until ctx is done and returns the summary. It blocks.
func (s *Session) Run(ctx context.Context) (analysis.Summary, error) {
	if err := s.Begin(); err != nil {
		return analysis.Summary{}, err
	}
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.Finish()
		case <-ticker.C:
			if _, ok := s.Tick(); !ok && s.State() != Recording {
				return analysis.Summary{}, fmt.Errorf("session %s ended in state %s", s.ID(), s.State())
			}
		}
	}
}
