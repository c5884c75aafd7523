// SPDX-License-Identifier: MIT
/*
Package analysis implements the per-frame frequency analysis engine:

  - Loudness: RMS of the time-domain frame in dBFS, floored at -100 dB.
  - Pitch: normalized average-magnitude-difference autocorrelation with a
    greedy climb/drop peak lock and parabolic lag refinement.
  - Formants: peak picking on a moving-average envelope of the quantized
    magnitude spectrum, F1 and F2 classified by frequency band.

Every estimator is a pure function of its input buffers. Undetected values are
reported with sentinels (0 Hz, -100 dB), never with errors, so callers treat
them as "no data this frame".

The Accumulator gathers accepted frames over a recording session and produces
an averaged Summary.
*/
package analysis

// Frame is one analysis cycle worth of buffers supplied by the sampler. The
// engine only reads these slices.
type Frame struct {
	Time          []float64 // Normalized samples in [-1, 1], length TransformSize.
	Spectrum      []uint8   // Quantized magnitudes, length TransformSize/2.
	SampleRate    float64   // Hz.
	TransformSize int       // Samples per transform.
}

// Descriptor is the engine output for one frame. Zero pitch or formant values
// and a loudness of LoudnessFloorDb mean "not detected".
type Descriptor struct {
	PitchHz    float64 `json:"pitchHz"`
	LoudnessDb float64 `json:"loudnessDb"`
	F1Hz       float64 `json:"f1Hz"`
	F2Hz       float64 `json:"f2Hz"`
}

// SilentDescriptor returns the descriptor of a frame where nothing was detected.
func SilentDescriptor() Descriptor {
	return Descriptor{LoudnessDb: DefaultLoudnessFloorDb}
}

// Voiced reports whether a pitch was detected.
func (d Descriptor) Voiced() bool {
	return d.PitchHz > 0
}

// Analyzer evaluates the three estimators with a fixed set of Params. It owns a
// correlation and an envelope scratch buffer so repeated calls on same-sized
// frames do not allocate; an Analyzer must therefore not be shared between
// goroutines.
type Analyzer struct {
	params Params
	corr   []float64
	env    []float64
}

// NewAnalyzer creates an Analyzer using params.
func NewAnalyzer(params Params) *Analyzer {
	return &Analyzer{params: params}
}

// Params returns the tuning in use.
func (a *Analyzer) Params() Params {
	return a.params
}

// Analyze runs loudness, pitch and formant estimation on one frame.
func (a *Analyzer) Analyze(f Frame) Descriptor {
	f1, f2 := a.Formants(f.Spectrum, f.SampleRate, f.TransformSize)
	return Descriptor{
		PitchHz:    a.Pitch(f.Time, f.SampleRate),
		LoudnessDb: a.Loudness(f.Time),
		F1Hz:       f1,
		F2Hz:       f2,
	}
}
