// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"log/slog"

	"vocalscan/internal/log"
)

// LoggingTransport writes every message to the debug log. Frames are noisy,
// so they are only logged when verbose is set.
type LoggingTransport struct {
	logger  *slog.Logger
	verbose bool
}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport(verbose bool) *LoggingTransport {
	return &LoggingTransport{logger: log.With("component", "transport"), verbose: verbose}
}

// Send logs data at debug level, or summaries at info level.
func (lt *LoggingTransport) Send(data any) error {
	switch m := data.(type) {
	case FrameMessage:
		if lt.verbose {
			lt.logger.Debug("frame",
				"session", m.SessionID, "seq", m.Seq,
				"pitchHz", m.PitchHz, "loudnessDb", m.LoudnessDb,
				"f1Hz", m.F1Hz, "f2Hz", m.F2Hz, "accepted", m.Accepted)
		}
	case SummaryMessage:
		lt.logger.Info("summary",
			"session", m.SessionID,
			"avgPitchHz", m.Summary.AvgPitchHz, "avgF1Hz", m.Summary.AvgF1Hz,
			"avgF2Hz", m.Summary.AvgF2Hz, "avgLoudnessDb", m.Summary.AvgLoudnessDb,
			"frames", m.Summary.Frames, "accepted", m.Summary.Accepted)
	case StateMessage:
		lt.logger.Debug("state", "session", m.SessionID, "state", m.State, "error", m.Error)
	default:
		lt.logger.Debug("message", "type", fmt.Sprintf("%T", data), "data", data)
	}
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
