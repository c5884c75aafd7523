// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"time"

	"vocalscan/internal/analysis"
)

// Transport delivers analysis messages to consumers. Implementations must be
// safe for concurrent use and must not block the analysis loop.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried in the "type" field.
const (
	TypeFrame   = "frame"
	TypeSummary = "summary"
	TypeState   = "state"
)

// FrameMessage is published for every analysed frame.
type FrameMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds.
	analysis.Descriptor
	Accepted bool  `json:"accepted"`           // Passed the summary gate.
	Spectrum []int `json:"spectrum,omitempty"` // Quantized magnitudes, 0..255.
}

// NewFrameMessage builds a frame message. spectrum is copied.
func NewFrameMessage(sessionID string, seq uint64, at time.Time, d analysis.Descriptor, accepted bool, spectrum []uint8) FrameMessage {
	m := FrameMessage{
		Type:       TypeFrame,
		SessionID:  sessionID,
		Seq:        seq,
		Timestamp:  at.UnixMilli(),
		Descriptor: d,
		Accepted:   accepted,
	}
	if len(spectrum) > 0 {
		m.Spectrum = make([]int, len(spectrum))
		for i, v := range spectrum {
			m.Spectrum[i] = int(v)
		}
	}
	return m
}

// SummaryMessage is published once when a session completes.
type SummaryMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId"`
	Timestamp int64            `json:"timestamp"`
	Duration  float64          `json:"durationSeconds"`
	Summary   analysis.Summary `json:"summary"`
}

// NewSummaryMessage builds a summary message.
func NewSummaryMessage(sessionID string, at time.Time, elapsed time.Duration, s analysis.Summary) SummaryMessage {
	return SummaryMessage{
		Type:      TypeSummary,
		SessionID: sessionID,
		Timestamp: at.UnixMilli(),
		Duration:  elapsed.Seconds(),
		Summary:   s,
	}
}

// StateMessage announces a session state change.
type StateMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// NewStateMessage builds a state message; err may be nil.
func NewStateMessage(sessionID string, at time.Time, state string, err error) StateMessage {
	m := StateMessage{
		Type:      TypeState,
		SessionID: sessionID,
		Timestamp: at.UnixMilli(),
		State:     state,
	}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

// Multi fans every message out to each transport in order.
type Multi []Transport

// Send delivers data to all transports and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all transports and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Send(any) error { return nil }
func (Discard) Close() error   { return nil }

var (
	_ Transport = Multi(nil)
	_ Transport = Discard{}
)
