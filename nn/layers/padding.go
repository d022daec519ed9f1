// Package layers holds the layer descriptors keyword-spotting topologies are
// assembled from. Descriptors are comparable values without weights.
package layers

import (
	"fmt"

	"kws_lib/nn"
)

// Padding selects how a windowed layer treats the borders of its input.
type Padding string

const (
	PaddingSame  Padding = "same"
	PaddingValid Padding = "valid"
)

// outDim is the output length of a windowed op along one axis.
// same: ceil(in/stride). valid: (in-k)/stride+1, or 0 when the window does
// not fit.
func outDim(in, k, stride int, p Padding) (int, error) {
	if k <= 0 || stride <= 0 {
		return 0, fmt.Errorf("kernel %d and stride %d must be positive", k, stride)
	}
	switch p {
	case PaddingSame:
		return (in + stride - 1) / stride, nil
	case PaddingValid:
		if in < k {
			return 0, nil
		}
		return (in-k)/stride + 1, nil
	}
	return 0, fmt.Errorf("unknown padding %q", p)
}

// featureMap unpacks a (time, frequency, channels) shape.
func featureMap(in nn.Shape) (t, f, c int, err error) {
	if len(in) != 3 {
		return 0, 0, 0, fmt.Errorf("expects a (time, frequency, channels) input, got %v", []int(in))
	}
	return in[0], in[1], in[2], nil
}

// windowOutput applies outDim on both spatial axes.
func windowOutput(in nn.Shape, kt, kf, st, sf int, p Padding) (t, f, c int, err error) {
	t, f, c, err = featureMap(in)
	if err != nil {
		return
	}
	if t, err = outDim(t, kt, st, p); err != nil {
		return
	}
	f, err = outDim(f, kf, sf, p)
	return
}

func activationSuffix(act string) string {
	if act == "" {
		return ""
	}
	return ", " + act
}
