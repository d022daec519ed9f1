package nn

import "fmt"

// AudioSettings describes how clips are acquired and framed before they
// reach a network.
type AudioSettings struct {
	LabelCount          int // how many classes are to be recognized
	SampleRate          int // audio samples per second
	ClipDurationMs      int // length of each clip
	WindowSizeMs        int // duration of the frequency analysis window
	WindowStrideMs      int // how far the window moves between frames
	DCTCoefficientCount int // frequency bins per frame
}

// ModelSettings holds the dimensions derived from AudioSettings. Every
// builder reads its input geometry from here.
type ModelSettings struct {
	DesiredSamples      int `json:"desired_samples"`
	WindowSizeSamples   int `json:"window_size_samples"`
	WindowStrideSamples int `json:"window_stride_samples"`
	SpectrogramLength   int `json:"spectrogram_length"`
	DCTCoefficientCount int `json:"dct_coefficient_count"`
	FingerprintSize     int `json:"fingerprint_size"`
	LabelCount          int `json:"label_count"`
	SampleRate          int `json:"sample_rate"`
}

// PrepareModelSettings calculates the settings shared by all architectures.
// All divisions truncate toward zero. A window longer than the clip yields a
// zero spectrogram length, which is reported by Degenerate and is not an error.
func PrepareModelSettings(a AudioSettings) (ModelSettings, error) {
	switch {
	case a.SampleRate <= 0:
		return ModelSettings{}, fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidConfiguration, a.SampleRate)
	case a.LabelCount <= 0:
		return ModelSettings{}, fmt.Errorf("%w: label count %d must be positive", ErrInvalidConfiguration, a.LabelCount)
	case a.DCTCoefficientCount <= 0:
		return ModelSettings{}, fmt.Errorf("%w: dct coefficient count %d must be positive", ErrInvalidConfiguration, a.DCTCoefficientCount)
	case a.ClipDurationMs < 0, a.WindowSizeMs < 0, a.WindowStrideMs < 0:
		return ModelSettings{}, fmt.Errorf("%w: durations must not be negative (clip %d ms, window %d ms, stride %d ms)",
			ErrInvalidConfiguration, a.ClipDurationMs, a.WindowSizeMs, a.WindowStrideMs)
	}

	desired := a.SampleRate * a.ClipDurationMs / 1000
	windowSize := a.SampleRate * a.WindowSizeMs / 1000
	windowStride := a.SampleRate * a.WindowStrideMs / 1000

	spectrogramLength := 0
	if lengthMinusWindow := desired - windowSize; lengthMinusWindow >= 0 {
		if windowStride == 0 {
			return ModelSettings{}, fmt.Errorf("%w: window stride of %d ms is zero samples at %d Hz",
				ErrInvalidConfiguration, a.WindowStrideMs, a.SampleRate)
		}
		spectrogramLength = 1 + lengthMinusWindow/windowStride
	}

	return ModelSettings{
		DesiredSamples:      desired,
		WindowSizeSamples:   windowSize,
		WindowStrideSamples: windowStride,
		SpectrogramLength:   spectrogramLength,
		DCTCoefficientCount: a.DCTCoefficientCount,
		FingerprintSize:     a.DCTCoefficientCount * spectrogramLength,
		LabelCount:          a.LabelCount,
		SampleRate:          a.SampleRate,
	}, nil
}

// Degenerate reports whether the analysis window never fits the clip.
func (ms ModelSettings) Degenerate() bool {
	return ms.SpectrogramLength == 0
}

// InputShape is the (time, frequency) grid the flattened fingerprint is
// reshaped into.
func (ms ModelSettings) InputShape() (t, f int) {
	return ms.SpectrogramLength, ms.DCTCoefficientCount
}
