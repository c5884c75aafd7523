// SPDX-License-Identifier: MIT

// Package observe records analysis metrics through the OpenTelemetry metrics
// API and exposes them for Prometheus scraping.
//
// A nil *Metrics is valid and records nothing, so callers never need to check
// whether metrics are enabled.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"vocalscan/internal/analysis"
)

const meterName = "vocalscan"

// Metrics holds the instruments of the analysis pipeline.
type Metrics struct {
	FramesAnalyzed   metric.Int64Counter
	FramesAccepted   metric.Int64Counter
	FormantsDetected metric.Int64Counter // attribute "formant" = f1|f2
	AnalysisDuration metric.Float64Histogram
	ActiveSessions   metric.Int64UpDownCounter
	Pitch            metric.Float64Histogram
}

// analysisBuckets are in seconds; one frame should analyse well under a
// millisecond.
var analysisBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025,
}

var pitchBuckets = []float64{
	60, 80, 100, 130, 160, 200, 250, 300, 400, 600, 1000,
}

var (
	attrF1 = metric.WithAttributes(attribute.String("formant", "f1"))
	attrF2 = metric.WithAttributes(attribute.String("formant", "f2"))
)

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesAnalyzed, err = m.Int64Counter("vocalscan.frames.analyzed",
		metric.WithDescription("Frames run through the analysis engine."),
	); err != nil {
		return nil, err
	}
	if met.FramesAccepted, err = m.Int64Counter("vocalscan.frames.accepted",
		metric.WithDescription("Frames that passed the summary gate."),
	); err != nil {
		return nil, err
	}
	if met.FormantsDetected, err = m.Int64Counter("vocalscan.formants.detected",
		metric.WithDescription("Detected formants by formant."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("vocalscan.analysis.duration",
		metric.WithDescription("Time spent analysing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("vocalscan.sessions.active",
		metric.WithDescription("Sessions currently recording."),
	); err != nil {
		return nil, err
	}
	if met.Pitch, err = m.Float64Histogram("vocalscan.pitch",
		metric.WithDescription("Detected fundamental frequency of voiced frames."),
		metric.WithUnit("Hz"),
		metric.WithExplicitBucketBoundaries(pitchBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordFrame records one analysed frame.
func (m *Metrics) RecordFrame(ctx context.Context, d analysis.Descriptor, accepted bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FramesAnalyzed.Add(ctx, 1)
	m.AnalysisDuration.Record(ctx, elapsed.Seconds())
	if accepted {
		m.FramesAccepted.Add(ctx, 1)
	}
	if d.Voiced() {
		m.Pitch.Record(ctx, d.PitchHz)
	}
	if d.F1Hz > 0 {
		m.FormantsDetected.Add(ctx, 1, attrF1)
	}
	if d.F2Hz > 0 {
		m.FormantsDetected.Add(ctx, 1, attrF2)
	}
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
