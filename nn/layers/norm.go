package layers

import (
	"fmt"

	"kws_lib/nn"
)

// DefaultEpsilon matches the Keras BatchNormalization default.
const DefaultEpsilon = 1e-3

// BatchNorm normalizes each channel. It carries gamma, beta and the moving
// mean and variance, four values per channel.
type BatchNorm struct {
	Epsilon float64 `json:"epsilon"`
}

func NewBatchNorm() BatchNorm { return BatchNorm{Epsilon: DefaultEpsilon} }

func (BatchNorm) Kind() nn.Kind { return nn.KindNormalization }

func (BatchNorm) Tag() string { return "BatchNorm" }

func (b BatchNorm) OutputShape(in nn.Shape) (nn.Shape, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("BatchNorm: empty input shape")
	}
	return in.Clone(), nil
}

func (BatchNorm) Params(in nn.Shape) int {
	if len(in) == 0 {
		return 0
	}
	return 4 * in[len(in)-1]
}

// Activation functions understood by the executor.
const (
	ReLU    = "relu"
	Softmax = "softmax"
)

// Activation applies an element-wise function.
type Activation struct {
	Func string `json:"func"`
}

func NewReLU() Activation { return Activation{Func: ReLU} }

func (Activation) Kind() nn.Kind { return nn.KindActivation }

func (a Activation) Tag() string { return fmt.Sprintf("Activation(%s)", a.Func) }

func (a Activation) OutputShape(in nn.Shape) (nn.Shape, error) {
	if a.Func != ReLU {
		return nil, fmt.Errorf("Activation: unsupported function %q", a.Func)
	}
	return in.Clone(), nil
}

func (Activation) Params(nn.Shape) int { return 0 }
