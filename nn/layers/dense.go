package layers

import (
	"fmt"

	"kws_lib/nn"
)

// Dense is the fully connected output layer.
type Dense struct {
	Units      int    `json:"units"`
	Activation string `json:"activation,omitempty"`
}

// NewSoftmaxDense creates the classifier head over units labels.
func NewSoftmaxDense(units int) Dense { return Dense{Units: units, Activation: Softmax} }

func (Dense) Kind() nn.Kind { return nn.KindDense }

func (d Dense) Tag() string { return fmt.Sprintf("Dense(%d%s)", d.Units, activationSuffix(d.Activation)) }

func (d Dense) OutputShape(in nn.Shape) (nn.Shape, error) {
	if d.Units <= 0 {
		return nil, fmt.Errorf("Dense: units %d must be positive", d.Units)
	}
	if len(in) != 1 {
		return nil, fmt.Errorf("Dense: expects a flat input, got %v", []int(in))
	}
	if d.Activation != "" && d.Activation != Softmax && d.Activation != ReLU {
		return nil, fmt.Errorf("Dense: unsupported activation %q", d.Activation)
	}
	return nn.Shape{d.Units}, nil
}

func (d Dense) Params(in nn.Shape) int {
	if len(in) != 1 {
		return 0
	}
	return in[0]*d.Units + d.Units
}
