package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"kws_lib/nn"
)

// Fingerprint computes the log band-energy spectrogram for a clip, laid out
// time-major as spectrogram_length frames of dct_coefficient_count values.
// The clip is zero padded or truncated to desired_samples first.
func Fingerprint(c *Clip, ms nn.ModelSettings) ([]float64, error) {
	if c.SampleRate != ms.SampleRate {
		return nil, fmt.Errorf("clip sampled at %d Hz, model expects %d Hz", c.SampleRate, ms.SampleRate)
	}
	out := make([]float64, ms.FingerprintSize)
	if ms.Degenerate() {
		return out, nil
	}

	samples := make([]float64, ms.DesiredSamples)
	copy(samples, c.Samples)

	size := ms.WindowSizeSamples
	hann := window.Hann(size)
	nfft := nextPow2(size)
	bins := nfft/2 + 1
	frame := make([]float64, nfft)

	for t := 0; t < ms.SpectrogramLength; t++ {
		start := t * ms.WindowStrideSamples
		for i := range frame {
			frame[i] = 0
		}
		for i := 0; i < size; i++ {
			frame[i] = samples[start+i] * hann[i]
		}

		spectrum := fft.FFTReal(frame)
		power := make([]float64, bins)
		for k := range power {
			m := cmplx.Abs(spectrum[k])
			power[k] = m * m
		}

		row := out[t*ms.DCTCoefficientCount : (t+1)*ms.DCTCoefficientCount]
		for b := range row {
			row[b] = math.Log1p(bandEnergy(power, b, ms.DCTCoefficientCount))
		}
	}
	return out, nil
}

// bandEnergy averages the power bins of band b out of n equal bands. A band
// narrower than one bin takes the bin it starts in.
func bandEnergy(power []float64, b, n int) float64 {
	lo := b * len(power) / n
	hi := (b + 1) * len(power) / n
	if hi <= lo {
		return power[lo]
	}
	sum := 0.0
	for _, p := range power[lo:hi] {
		sum += p
	}
	return sum / float64(hi-lo)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FeatureImage transposes a fingerprint into dct_coefficient_count rows of
// spectrogram_length values, frequency on the vertical axis.
func FeatureImage(fp []float64, ms nn.ModelSettings) ([][]float64, error) {
	if len(fp) != ms.FingerprintSize {
		return nil, fmt.Errorf("fingerprint has %d values, settings expect %d", len(fp), ms.FingerprintSize)
	}
	img := make([][]float64, ms.DCTCoefficientCount)
	for f := range img {
		img[f] = make([]float64, ms.SpectrogramLength)
		for t := range img[f] {
			img[f][t] = fp[t*ms.DCTCoefficientCount+f]
		}
	}
	return img, nil
}
