// SPDX-License-Identifier: MIT

// Package report renders session summaries for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"vocalscan/internal/analysis"
)

// Report describes one finished session.
type Report struct {
	SessionID string           `json:"sessionId,omitempty"`
	Source    string           `json:"source"` // File path or capture device.
	Duration  time.Duration    `json:"-"`
	Summary   analysis.Summary `json:"summary"`
}

type jsonReport struct {
	Report
	DurationSeconds float64 `json:"durationSeconds"`
	Voiced          bool    `json:"voiced"`
}

// Voiced reports whether any frame passed the gate.
func (r Report) Voiced() bool {
	return r.Summary.Accepted > 0
}

// WriteJSON writes r as one indented JSON object.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Report: r, DurationSeconds: r.Duration.Seconds(), Voiced: r.Voiced()})
}

// WriteText writes a plain-text block. Frequencies are rounded to whole Hz and
// undetected values are reported as such.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "Source:            %s\n", r.Source)
	if r.SessionID != "" {
		fmt.Fprintf(&b, "Session:           %s\n", r.SessionID)
	}
	fmt.Fprintf(&b, "Duration:          %s\n", r.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(&b, "Frames:            %d analysed, %d voiced\n", s.Frames, s.Accepted)
	if !r.Voiced() {
		b.WriteString("No voiced frames above the loudness gate.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "Average pitch F0:  %s\n", hz(s.AvgPitchHz, s.Accepted))
	fmt.Fprintf(&b, "Average F1:        %s\n", hz(s.AvgF1Hz, s.F1Count))
	fmt.Fprintf(&b, "Average F2:        %s\n", hz(s.AvgF2Hz, s.F2Count))
	fmt.Fprintf(&b, "Average loudness:  %.0f dB\n", math.Round(s.AvgLoudnessDb))

	_, err := io.WriteString(w, b.String())
	return err
}

func hz(v float64, n int) string {
	if n == 0 {
		return "not detected"
	}
	return fmt.Sprintf("%.0f Hz (%d frames)", math.Round(v), n)
}
