// SPDX-License-Identifier: MIT
package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"vocalscan/internal/analysis"
)

func voicedReport() Report {
	return Report{
		SessionID: "0b7c",
		Source:    "take1.wav",
		Duration:  2500 * time.Millisecond,
		Summary: analysis.Summary{
			AvgPitchHz:    219.6,
			AvgF1Hz:       516.797,
			AvgF2Hz:       1507.3,
			AvgLoudnessDb: -12.4,
			Frames:        150,
			Accepted:      120,
			F1Count:       118,
			F2Count:       0,
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, voicedReport()); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Source:            take1.wav",
		"Session:           0b7c",
		"Duration:          2.5s",
		"150 analysed, 120 voiced",
		"Average pitch F0:  220 Hz (120 frames)",
		"Average F1:        517 Hz (118 frames)",
		"Average F2:        not detected",
		"Average loudness:  -12 dB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextUnvoiced(t *testing.T) {
	r := Report{Source: "mic", Summary: analysis.Summary{Frames: 10, AvgLoudnessDb: -100}}
	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "No voiced frames") {
		t.Errorf("output missing unvoiced notice:\n%s", out)
	}
	if strings.Contains(out, "Session:") || strings.Contains(out, "Average") {
		t.Errorf("unexpected lines in unvoiced report:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, voicedReport()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var got struct {
		SessionID       string           `json:"sessionId"`
		Source          string           `json:"source"`
		DurationSeconds float64          `json:"durationSeconds"`
		Voiced          bool             `json:"voiced"`
		Summary         analysis.Summary `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, buf.String())
	}
	want := voicedReport()
	if got.SessionID != want.SessionID || got.Source != want.Source || got.DurationSeconds != 2.5 || !got.Voiced {
		t.Errorf("decoded = %+v", got)
	}
	if got.Summary != want.Summary {
		t.Errorf("summary = %+v, want %+v", got.Summary, want.Summary)
	}
}
