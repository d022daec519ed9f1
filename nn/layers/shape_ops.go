package layers

import (
	"fmt"

	"kws_lib/nn"
)

// Reshape folds the flattened fingerprint into a (time, frequency, channels)
// feature map.
type Reshape struct {
	Time     int `json:"time"`
	Freq     int `json:"freq"`
	Channels int `json:"channels"`
}

func NewReshape(t, f int) Reshape { return Reshape{Time: t, Freq: f, Channels: 1} }

func (r Reshape) Kind() nn.Kind { return nn.KindInputReshape }

func (r Reshape) Tag() string { return fmt.Sprintf("Reshape(%d, %d, %d)", r.Time, r.Freq, r.Channels) }

func (r Reshape) OutputShape(in nn.Shape) (nn.Shape, error) {
	if r.Time < 0 || r.Freq < 0 || r.Channels < 0 {
		return nil, fmt.Errorf("Reshape: negative target (%d, %d, %d)", r.Time, r.Freq, r.Channels)
	}
	if len(in) != 1 {
		return nil, fmt.Errorf("Reshape: expects a flat input, got %v", []int(in))
	}
	if want := r.Time * r.Freq * r.Channels; in[0] != want {
		return nil, fmt.Errorf("Reshape: input of %d values does not fold into %dx%dx%d", in[0], r.Time, r.Freq, r.Channels)
	}
	return nn.Shape{r.Time, r.Freq, r.Channels}, nil
}

func (Reshape) Params(nn.Shape) int { return 0 }

// Flatten unrolls a feature map row-major into a vector.
type Flatten struct{}

func (Flatten) Kind() nn.Kind { return nn.KindFlatten }

func (Flatten) Tag() string { return "Flatten" }

func (Flatten) OutputShape(in nn.Shape) (nn.Shape, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("Flatten: empty input shape")
	}
	return nn.Shape{in.Size()}, nil
}

func (Flatten) Params(nn.Shape) int { return 0 }

// Squeeze drops the collapsed spatial axes after a global pool, leaving
// Features values. A zero-size input passes through as a degenerate map.
type Squeeze struct {
	Features int `json:"features"`
}

func (s Squeeze) Kind() nn.Kind { return nn.KindFlatten }

func (s Squeeze) Tag() string { return fmt.Sprintf("Squeeze(%d)", s.Features) }

func (s Squeeze) OutputShape(in nn.Shape) (nn.Shape, error) {
	if s.Features <= 0 {
		return nil, fmt.Errorf("Squeeze: features %d must be positive", s.Features)
	}
	if n := in.Size(); n != s.Features && n != 0 {
		return nil, fmt.Errorf("Squeeze: %v holds %d values, not %d", []int(in), n, s.Features)
	}
	return nn.Shape{s.Features}, nil
}

func (Squeeze) Params(nn.Shape) int { return 0 }
