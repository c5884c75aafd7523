// SPDX-License-Identifier: MIT
package analysis

import "gonum.org/v1/gonum/stat"

// Summary is the per-session average of accepted frames.
type Summary struct {
	AvgPitchHz    float64 `json:"avgPitchHz"`
	AvgF1Hz       float64 `json:"avgF1Hz"`
	AvgF2Hz       float64 `json:"avgF2Hz"`
	AvgLoudnessDb float64 `json:"avgLoudnessDb"`
	Frames        int     `json:"frames"`   // Frames offered to the accumulator.
	Accepted      int     `json:"accepted"` // Frames that passed the pitch/loudness gate.
	F1Count       int     `json:"f1Count"`
	F2Count       int     `json:"f2Count"`
}

// Accumulator collects descriptors of voiced, audible frames during a recording
// session. It only appends; stored samples are never edited. It is not safe for
// concurrent use.
type Accumulator struct {
	params   AccumulatorParams
	frames   int
	pitches  []float64
	loudness []float64
	f1s      []float64
	f2s      []float64
}

// NewAccumulator creates an empty Accumulator gated by params.
func NewAccumulator(params AccumulatorParams) *Accumulator {
	return &Accumulator{params: params}
}

// Accept offers one frame. The frame contributes its pitch and loudness only if
// pitch > MinPitchHz and loudness > MinLoudnessDb; within such frames F1 and F2
// are stored when detected. Accept reports whether the gate passed.
func (a *Accumulator) Accept(d Descriptor) bool {
	a.frames++
	if !(d.PitchHz > a.params.MinPitchHz && d.LoudnessDb > a.params.MinLoudnessDb) {
		return false
	}
	a.pitches = append(a.pitches, d.PitchHz)
	a.loudness = append(a.loudness, d.LoudnessDb)
	if d.F1Hz > 0 {
		a.f1s = append(a.f1s, d.F1Hz)
	}
	if d.F2Hz > 0 {
		a.f2s = append(a.f2s, d.F2Hz)
	}
	return true
}

// Summarize returns the arithmetic mean of each collection. Empty collections
// average to 0, except loudness which reports the silence floor.
func (a *Accumulator) Summarize() Summary {
	s := Summary{
		AvgPitchHz:    mean(a.pitches),
		AvgF1Hz:       mean(a.f1s),
		AvgF2Hz:       mean(a.f2s),
		AvgLoudnessDb: DefaultLoudnessFloorDb,
		Frames:        a.frames,
		Accepted:      len(a.pitches),
		F1Count:       len(a.f1s),
		F2Count:       len(a.f2s),
	}
	if len(a.loudness) > 0 {
		s.AvgLoudnessDb = stat.Mean(a.loudness, nil)
	}
	return s
}

// Reset clears every collection, keeping allocated capacity.
func (a *Accumulator) Reset() {
	a.frames = 0
	a.pitches = a.pitches[:0]
	a.loudness = a.loudness[:0]
	a.f1s = a.f1s[:0]
	a.f2s = a.f2s[:0]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
