// Package audio turns WAV clips into the fingerprints keyword-spotting
// networks consume.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mjibson/go-dsp/wav"
)

// ErrUnsupportedFormat is returned for clips that are not mono PCM.
var ErrUnsupportedFormat = errors.New("unsupported wav format")

// Clip is a decoded mono recording with samples scaled to [-1, 1).
type Clip struct {
	SampleRate int
	Samples    []float64
}

// Duration is the length of the recording.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// LoadClip reads a mono WAV file.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := DecodeClip(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// DecodeClip reads a mono WAV stream.
func DecodeClip(r io.Reader) (*Clip, error) {
	w, err := wav.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wav: %w", err)
	}
	if w.NumChannels != 1 {
		return nil, fmt.Errorf("%w: %d channels, expect mono", ErrUnsupportedFormat, w.NumChannels)
	}
	if w.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrUnsupportedFormat)
	}

	// w.Samples rounds the data size down to a multiple of eight samples;
	// the tail is read one sample at a time until the data chunk ends.
	clip := &Clip{SampleRate: int(w.SampleRate)}
	if err := appendSamples(clip, w, w.Samples); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	for {
		err := appendSamples(clip, w, 1)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read samples: %w", err)
		}
	}
	return clip, nil
}

// appendSamples reads n samples and scales them to [-1, 1). PCM is signed
// 16-bit or unsigned 8-bit centred on 128; IEEE float is already in range.
func appendSamples(c *Clip, w *wav.Wav, n int) error {
	data, err := w.ReadSamples(n)
	if err != nil {
		return err
	}
	switch d := data.(type) {
	case []int16:
		for _, v := range d {
			c.Samples = append(c.Samples, float64(v)/32768)
		}
	case []uint8:
		for _, v := range d {
			c.Samples = append(c.Samples, (float64(v)-128)/128)
		}
	case []float32:
		for _, v := range d {
			c.Samples = append(c.Samples, float64(v))
		}
	default:
		return fmt.Errorf("%w: sample type %T", ErrUnsupportedFormat, data)
	}
	return nil
}

// Point is one waveform sample on a time axis in seconds.
type Point struct {
	Time      float64 `json:"t"`
	Amplitude float64 `json:"amplitude"`
}

// Waveform pairs every sample with its timestamp.
func Waveform(c *Clip) []Point {
	points := make([]Point, len(c.Samples))
	for i, s := range c.Samples {
		points[i] = Point{Time: float64(i) / float64(c.SampleRate), Amplitude: s}
	}
	return points
}
