// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestAccumulatorGate(t *testing.T) {
	tests := []struct {
		name   string
		d      Descriptor
		accept bool
	}{
		{"Voiced Loud", Descriptor{PitchHz: 120, LoudnessDb: -20}, true},
		{"Pitch At Gate", Descriptor{PitchHz: 50, LoudnessDb: -20}, false},
		{"Loudness At Gate", Descriptor{PitchHz: 120, LoudnessDb: -40}, false},
		{"Unvoiced", Descriptor{PitchHz: 0, LoudnessDb: -10}, false},
		{"Silent", SilentDescriptor(), false},
		{"Just Above", Descriptor{PitchHz: 50.01, LoudnessDb: -39.99}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(DefaultAccumulatorParams())
			if got := acc.Accept(tt.d); got != tt.accept {
				t.Errorf("Accept(%+v) = %v, want %v", tt.d, got, tt.accept)
			}
		})
	}
}

func TestAccumulatorAlternatingFrames(t *testing.T) {
	acc := NewAccumulator(DefaultAccumulatorParams())
	for i := range 20 {
		d := Descriptor{PitchHz: 40, LoudnessDb: -20}
		if i%2 == 1 {
			d.PitchHz = 120
		}
		acc.Accept(d)
	}

	s := acc.Summarize()
	if s.AvgPitchHz != 120 {
		t.Errorf("AvgPitchHz = %f, want 120", s.AvgPitchHz)
	}
	if s.Frames != 20 || s.Accepted != 10 {
		t.Errorf("Frames/Accepted = %d/%d, want 20/10", s.Frames, s.Accepted)
	}
	if s.AvgLoudnessDb != -20 {
		t.Errorf("AvgLoudnessDb = %f, want -20", s.AvgLoudnessDb)
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	acc := NewAccumulator(DefaultAccumulatorParams())
	acc.Accept(SilentDescriptor())
	acc.Accept(Descriptor{PitchHz: 30, LoudnessDb: -10, F1Hz: 500, F2Hz: 1500})

	want := Summary{AvgLoudnessDb: DefaultLoudnessFloorDb, Frames: 2}
	if got := acc.Summarize(); got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestAccumulatorFormantsOnlyFromGatedFrames(t *testing.T) {
	acc := NewAccumulator(DefaultAccumulatorParams())
	frames := []Descriptor{
		{PitchHz: 150, LoudnessDb: -20, F1Hz: 500, F2Hz: 1500},
		{PitchHz: 150, LoudnessDb: -20, F1Hz: 700},
		{PitchHz: 150, LoudnessDb: -20, F2Hz: 1700},
		{PitchHz: 150, LoudnessDb: -60, F1Hz: 9000, F2Hz: 9000}, // Too quiet.
		{PitchHz: 10, LoudnessDb: -20, F1Hz: 9000, F2Hz: 9000},  // Too low.
	}
	for _, d := range frames {
		acc.Accept(d)
	}

	s := acc.Summarize()
	if s.F1Count != 2 || s.F2Count != 2 {
		t.Fatalf("F1Count/F2Count = %d/%d, want 2/2", s.F1Count, s.F2Count)
	}
	if s.AvgF1Hz != 600 {
		t.Errorf("AvgF1Hz = %f, want 600", s.AvgF1Hz)
	}
	if s.AvgF2Hz != 1600 {
		t.Errorf("AvgF2Hz = %f, want 1600", s.AvgF2Hz)
	}
	if s.Accepted != 3 {
		t.Errorf("Accepted = %d, want 3", s.Accepted)
	}
}

func TestAccumulatorMeanLoudness(t *testing.T) {
	acc := NewAccumulator(DefaultAccumulatorParams())
	for _, db := range []float64{-30, -20, -10} {
		acc.Accept(Descriptor{PitchHz: 200, LoudnessDb: db})
	}
	if got := acc.Summarize().AvgLoudnessDb; math.Abs(got+20) > 1e-12 {
		t.Errorf("AvgLoudnessDb = %f, want -20", got)
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewAccumulator(DefaultAccumulatorParams())
	acc.Accept(Descriptor{PitchHz: 200, LoudnessDb: -10, F1Hz: 500, F2Hz: 1500})
	acc.Reset()

	want := Summary{AvgLoudnessDb: DefaultLoudnessFloorDb}
	if got := acc.Summarize(); got != want {
		t.Errorf("Summarize() after Reset = %+v, want %+v", got, want)
	}

	acc.Accept(Descriptor{PitchHz: 100, LoudnessDb: -30})
	if got := acc.Summarize().AvgPitchHz; got != 100 {
		t.Errorf("AvgPitchHz after Reset = %f, want 100", got)
	}
}

func TestAccumulatorCustomGate(t *testing.T) {
	acc := NewAccumulator(AccumulatorParams{MinPitchHz: 80, MinLoudnessDb: -60})
	if acc.Accept(Descriptor{PitchHz: 70, LoudnessDb: -30}) {
		t.Error("Accept(70 Hz) = true with an 80 Hz gate")
	}
	if !acc.Accept(Descriptor{PitchHz: 90, LoudnessDb: -50}) {
		t.Error("Accept(-50 dB) = false with a -60 dB gate")
	}
}
