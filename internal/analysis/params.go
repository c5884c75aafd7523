// SPDX-License-Identifier: MIT
package analysis

// Band is an exclusive frequency range (LowHz, HighHz) used to classify
// spectral peaks.
type Band struct {
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
}

// Contains reports whether hz lies strictly inside the band.
func (b Band) Contains(hz float64) bool {
	return hz > b.LowHz && hz < b.HighHz
}

// Params holds the heuristic tuning values of the estimators. None of them has a
// first-principles derivation; the defaults reproduce the reference output and
// should only be changed together with new accuracy requirements.
type Params struct {
	// Loudness.
	LoudnessFloorDb float64 `yaml:"loudness_floor_db"` // Clamp and silence sentinel.

	// Pitch.
	SilenceRMS           float64 `yaml:"silence_rms"`           // Below this RMS no pitch is searched.
	CorrelationThreshold float64 `yaml:"correlation_threshold"` // A lag must exceed this to lock on.
	MinCorrelation       float64 `yaml:"min_correlation"`       // Fallback acceptance when the peak never drops.
	InterpolationFactor  float64 `yaml:"interpolation_factor"`  // Sensitivity of the parabolic lag refinement.
	MinLag               int     `yaml:"min_lag"`               // Shortest accepted period in samples; caps pitch at sampleRate/MinLag.

	// Formants.
	SmoothingHalfWindow int     `yaml:"smoothing_half_window"` // Envelope moving average spans 2*n+1 bins.
	MinPeakBin          int     `yaml:"min_peak_bin"`          // Bins below this are DC/rumble.
	PeakThreshold       float64 `yaml:"peak_threshold"`        // Quantized magnitude a peak must exceed.
	BinCorrection       float64 `yaml:"bin_correction"`        // Empirical bin-to-Hz multiplier.
	F1Band              Band    `yaml:"f1_band"`
	F2Band              Band    `yaml:"f2_band"`
}

// Reference tuning values.
const (
	DefaultLoudnessFloorDb      = -100.0
	DefaultSilenceRMS           = 0.01
	DefaultCorrelationThreshold = 0.9
	DefaultMinCorrelation       = 0.01
	DefaultInterpolationFactor  = 8.0
	DefaultMinLag               = 3
	DefaultSmoothingHalfWindow  = 5
	DefaultMinPeakBin           = 5
	DefaultPeakThreshold        = 30.0
	DefaultBinCorrection        = 2.0
)

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		LoudnessFloorDb:      DefaultLoudnessFloorDb,
		SilenceRMS:           DefaultSilenceRMS,
		CorrelationThreshold: DefaultCorrelationThreshold,
		MinCorrelation:       DefaultMinCorrelation,
		InterpolationFactor:  DefaultInterpolationFactor,
		MinLag:               DefaultMinLag,
		SmoothingHalfWindow:  DefaultSmoothingHalfWindow,
		MinPeakBin:           DefaultMinPeakBin,
		PeakThreshold:        DefaultPeakThreshold,
		BinCorrection:        DefaultBinCorrection,
		F1Band:               Band{LowHz: 250, HighHz: 900},
		F2Band:               Band{LowHz: 950, HighHz: 2500},
	}
}

// AccumulatorParams gates which frames contribute to a session summary.
type AccumulatorParams struct {
	MinPitchHz    float64 `yaml:"min_pitch_hz"`
	MinLoudnessDb float64 `yaml:"min_loudness_db"`
}

// DefaultAccumulatorParams rejects frames at or below 50 Hz or -40 dB.
func DefaultAccumulatorParams() AccumulatorParams {
	return AccumulatorParams{
		MinPitchHz:    50,
		MinLoudnessDb: -40,
	}
}
