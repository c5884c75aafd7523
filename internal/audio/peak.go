// SPDX-License-Identifier: MIT
package audio

import "math"

// peakAmplitude returns the largest absolute sample value without branching
// in the loop body. math.MinInt32 saturates to math.MaxInt32.
func peakAmplitude(buffer []int32) int32 {
	var peak int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		amplitude ^= amplitude >> 31
		diff := amplitude - peak
		peak += diff & ^(diff >> 31)
	}
	return peak
}

// peakRatio maps an int32 peak to [0, 1].
func peakRatio(peak int32) float64 {
	return float64(peak) / float64(math.MaxInt32)
}
