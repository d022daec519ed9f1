// Package plain runs keyword-spotting topologies on the CPU in float64. It
// is a reference executor for checking built topologies end to end, not a
// training framework.
package plain

import (
	"fmt"

	"go.uber.org/zap"

	"kws_lib/nn"
	"kws_lib/nn/layers"
	"kws_lib/tensor"
)

// Parameter names, following the Keras weight names.
const (
	ParamKernel   = "kernel"
	ParamBias     = "bias"
	ParamGamma    = "gamma"
	ParamBeta     = "beta"
	ParamMean     = "moving_mean"
	ParamVariance = "moving_variance"
)

type unit struct {
	node   nn.Node
	params map[string]*tensor.Tensor
}

func (u unit) param(name string) *tensor.Tensor { return u.params[name] }

// Network is a topology with concrete parameters. It is read-only after
// construction and Forward may be called concurrently.
type Network struct {
	topo  *nn.Topology
	units []unit
}

// Option configures Instantiate and LoadWeights.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used while instantiating.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Topology returns the topology the network was built from.
func (n *Network) Topology() *nn.Topology { return n.topo }

// Forward classifies one fingerprint and returns the output layer values.
func (n *Network) Forward(fingerprint []float64) (*tensor.Tensor, error) {
	if len(fingerprint) != n.topo.InputSize() {
		return nil, fmt.Errorf("%s: fingerprint has %d values, network expects %d",
			n.topo.Name(), len(fingerprint), n.topo.InputSize())
	}
	x := tensor.NewWithData(fingerprint)
	for _, u := range n.units {
		y, err := u.forward(x)
		if err != nil {
			return nil, fmt.Errorf("%s: layer %d (%s): %w", n.topo.Name(), u.node.Index, u.node.Layer.Tag(), err)
		}
		x = y
	}
	return x, nil
}

// Predict returns the most likely class and the full distribution.
func (n *Network) Predict(fingerprint []float64) (int, []float64, error) {
	out, err := n.Forward(fingerprint)
	if err != nil {
		return -1, nil, err
	}
	return out.ArgMax(), out.Data, nil
}

func (u unit) forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	switch l := u.node.Layer.(type) {
	case layers.Reshape:
		return x.Reshape(l.Time, l.Freq, l.Channels)
	case layers.Conv2D:
		return conv2D(x, l, u.param(ParamKernel), u.param(ParamBias))
	case layers.DepthwiseConv2D:
		return depthwiseConv2D(x, l, u.param(ParamKernel), u.param(ParamBias))
	case layers.PointwiseConv2D:
		return pointwiseConv2D(x, l, u.param(ParamKernel), u.param(ParamBias))
	case layers.BatchNorm:
		return batchNorm(x, l, u.param(ParamGamma), u.param(ParamBeta), u.param(ParamMean), u.param(ParamVariance)), nil
	case layers.Activation:
		return tensor.Relu(x), nil
	case layers.Pool2D:
		return pool2D(x, l)
	case layers.Flatten:
		return x.Reshape(x.Len())
	case layers.Squeeze:
		if x.Len() == 0 {
			return tensor.New(l.Features), nil
		}
		return x.Reshape(l.Features)
	case layers.Dense:
		return dense(x, l, u.param(ParamKernel), u.param(ParamBias)), nil
	}
	return nil, fmt.Errorf("no kernel for %T", u.node.Layer)
}
