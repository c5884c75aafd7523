// SPDX-License-Identifier: MIT
package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"vocalscan/internal/analysis"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %s not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s data = %T, want Sum[int64]", name, m.Data)
	}
	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, analysis.Descriptor{PitchHz: 220, LoudnessDb: -20, F1Hz: 500, F2Hz: 1500}, true, time.Millisecond)
	m.RecordFrame(ctx, analysis.Descriptor{PitchHz: 180, LoudnessDb: -60, F1Hz: 400}, false, time.Millisecond)
	m.RecordFrame(ctx, analysis.SilentDescriptor(), false, time.Millisecond)

	rm := collect(t, reader)
	if got := sumInt64(t, rm, "vocalscan.frames.analyzed"); got != 3 {
		t.Errorf("frames.analyzed = %d, want 3", got)
	}
	if got := sumInt64(t, rm, "vocalscan.frames.accepted"); got != 1 {
		t.Errorf("frames.accepted = %d, want 1", got)
	}
	if got := sumInt64(t, rm, "vocalscan.formants.detected", attribute.String("formant", "f1")); got != 2 {
		t.Errorf("formants.detected{f1} = %d, want 2", got)
	}
	if got := sumInt64(t, rm, "vocalscan.formants.detected", attribute.String("formant", "f2")); got != 1 {
		t.Errorf("formants.detected{f2} = %d, want 1", got)
	}

	hist, ok := findMetric(rm, "vocalscan.analysis.duration").Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 3 {
		t.Errorf("analysis.duration = %+v, want 3 observations", hist)
	}
	pitch, ok := findMetric(rm, "vocalscan.pitch").Data.(metricdata.Histogram[float64])
	if !ok || len(pitch.DataPoints) != 1 || pitch.DataPoints[0].Count != 2 {
		t.Errorf("pitch = %+v, want 2 voiced observations", pitch)
	}
}

func TestActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.SessionStarted(ctx)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)

	if got := sumInt64(t, collect(t, reader), "vocalscan.sessions.active"); got != 1 {
		t.Errorf("sessions.active = %d, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordFrame(ctx, analysis.Descriptor{PitchHz: 100}, true, time.Millisecond)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
}

func TestProviderHandler(t *testing.T) {
	ctx := context.Background()
	p, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	m, err := NewMetrics(p.MeterProvider)
	if err != nil {
		t.Fatal(err)
	}
	m.RecordFrame(ctx, analysis.Descriptor{PitchHz: 220}, true, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "vocalscan_frames_analyzed") {
		t.Errorf("scrape output missing vocalscan_frames_analyzed:\n%s", body)
	}
}
