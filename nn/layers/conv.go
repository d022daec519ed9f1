package layers

import (
	"fmt"

	"kws_lib/nn"
)

// Conv2D is a standard convolution with bias.
type Conv2D struct {
	Filters    int     `json:"filters"`
	KernelT    int     `json:"kernel_t"`
	KernelF    int     `json:"kernel_f"`
	StrideT    int     `json:"stride_t"`
	StrideF    int     `json:"stride_f"`
	Padding    Padding `json:"padding"`
	Activation string  `json:"activation,omitempty"`
}

// NewConv2D creates a same-padded convolution without a fused activation.
func NewConv2D(filters, kt, kf, st, sf int) Conv2D {
	return Conv2D{Filters: filters, KernelT: kt, KernelF: kf, StrideT: st, StrideF: sf, Padding: PaddingSame}
}

// WithActivation returns a copy with an activation fused into the layer.
func (c Conv2D) WithActivation(act string) Conv2D {
	c.Activation = act
	return c
}

func (c Conv2D) Kind() nn.Kind { return nn.KindConv }

func (c Conv2D) Tag() string {
	return fmt.Sprintf("Conv2D(%d, %dx%d, s%dx%d, %s%s)", c.Filters, c.KernelT, c.KernelF, c.StrideT, c.StrideF, c.Padding, activationSuffix(c.Activation))
}

func (c Conv2D) OutputShape(in nn.Shape) (nn.Shape, error) {
	if c.Filters <= 0 {
		return nil, fmt.Errorf("Conv2D: filters %d must be positive", c.Filters)
	}
	t, f, _, err := windowOutput(in, c.KernelT, c.KernelF, c.StrideT, c.StrideF, c.Padding)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	return nn.Shape{t, f, c.Filters}, nil
}

func (c Conv2D) Params(in nn.Shape) int {
	if len(in) != 3 {
		return 0
	}
	return c.KernelT*c.KernelF*in[2]*c.Filters + c.Filters
}

// PointwiseConv2D is the 1x1 channel-mixing half of a depthwise separable
// convolution. It uses valid padding and unit stride.
type PointwiseConv2D struct {
	Filters int `json:"filters"`
}

func NewPointwiseConv2D(filters int) PointwiseConv2D { return PointwiseConv2D{Filters: filters} }

func (p PointwiseConv2D) Kind() nn.Kind { return nn.KindPointwiseConv }

func (p PointwiseConv2D) Tag() string { return fmt.Sprintf("PointwiseConv2D(%d)", p.Filters) }

func (p PointwiseConv2D) OutputShape(in nn.Shape) (nn.Shape, error) {
	if p.Filters <= 0 {
		return nil, fmt.Errorf("PointwiseConv2D: filters %d must be positive", p.Filters)
	}
	t, f, _, err := featureMap(in)
	if err != nil {
		return nil, fmt.Errorf("PointwiseConv2D: %w", err)
	}
	return nn.Shape{t, f, p.Filters}, nil
}

func (p PointwiseConv2D) Params(in nn.Shape) int {
	if len(in) != 3 {
		return 0
	}
	return in[2]*p.Filters + p.Filters
}

// DepthwiseConv2D convolves every input channel on its own, producing
// Multiplier output channels per input channel.
type DepthwiseConv2D struct {
	Multiplier int     `json:"depth_multiplier"`
	KernelT    int     `json:"kernel_t"`
	KernelF    int     `json:"kernel_f"`
	StrideT    int     `json:"stride_t"`
	StrideF    int     `json:"stride_f"`
	Padding    Padding `json:"padding"`
	Activation string  `json:"activation,omitempty"`
}

// NewDepthwiseConv2D creates a same-padded depthwise convolution.
func NewDepthwiseConv2D(multiplier, kt, kf, st, sf int) DepthwiseConv2D {
	return DepthwiseConv2D{Multiplier: multiplier, KernelT: kt, KernelF: kf, StrideT: st, StrideF: sf, Padding: PaddingSame}
}

// WithActivation returns a copy with an activation fused into the layer.
func (d DepthwiseConv2D) WithActivation(act string) DepthwiseConv2D {
	d.Activation = act
	return d
}

func (d DepthwiseConv2D) Kind() nn.Kind { return nn.KindDepthwiseConv }

func (d DepthwiseConv2D) Tag() string {
	return fmt.Sprintf("DepthwiseConv2D(x%d, %dx%d, s%dx%d, %s%s)", d.Multiplier, d.KernelT, d.KernelF, d.StrideT, d.StrideF, d.Padding, activationSuffix(d.Activation))
}

func (d DepthwiseConv2D) OutputShape(in nn.Shape) (nn.Shape, error) {
	if d.Multiplier <= 0 {
		return nil, fmt.Errorf("DepthwiseConv2D: depth multiplier %d must be positive", d.Multiplier)
	}
	t, f, c, err := windowOutput(in, d.KernelT, d.KernelF, d.StrideT, d.StrideF, d.Padding)
	if err != nil {
		return nil, fmt.Errorf("DepthwiseConv2D: %w", err)
	}
	return nn.Shape{t, f, c * d.Multiplier}, nil
}

func (d DepthwiseConv2D) Params(in nn.Shape) int {
	if len(in) != 3 {
		return 0
	}
	return d.KernelT*d.KernelF*in[2]*d.Multiplier + in[2]*d.Multiplier
}
