package layers

import (
	"fmt"

	"kws_lib/nn"
)

// PoolMode selects the reduction of a pooling window.
type PoolMode string

const (
	PoolMax PoolMode = "max"
	PoolAvg PoolMode = "avg"
)

// Pool2D reduces every window of PoolT x PoolF values per channel.
type Pool2D struct {
	Mode    PoolMode `json:"mode"`
	PoolT   int      `json:"pool_t"`
	PoolF   int      `json:"pool_f"`
	StrideT int      `json:"stride_t"`
	StrideF int      `json:"stride_f"`
	Padding Padding  `json:"padding"`
}

// NewMaxPool2D creates a valid-padded max pool striding by its own window.
func NewMaxPool2D(pt, pf int) Pool2D {
	return Pool2D{Mode: PoolMax, PoolT: pt, PoolF: pf, StrideT: pt, StrideF: pf, Padding: PaddingValid}
}

// NewAvgPool2D creates a valid-padded average pool with unit stride.
func NewAvgPool2D(pt, pf int) Pool2D {
	return Pool2D{Mode: PoolAvg, PoolT: pt, PoolF: pf, StrideT: 1, StrideF: 1, Padding: PaddingValid}
}

func (Pool2D) Kind() nn.Kind { return nn.KindPooling }

func (p Pool2D) Tag() string {
	name := "MaxPool2D"
	if p.Mode == PoolAvg {
		name = "AvgPool2D"
	}
	return fmt.Sprintf("%s(%dx%d, s%dx%d)", name, p.PoolT, p.PoolF, p.StrideT, p.StrideF)
}

// OutputShape rejects a window larger than a non-empty feature map; an empty
// map stays empty.
func (p Pool2D) OutputShape(in nn.Shape) (nn.Shape, error) {
	if p.Mode != PoolMax && p.Mode != PoolAvg {
		return nil, fmt.Errorf("Pool2D: unknown mode %q", p.Mode)
	}
	t, f, c, err := featureMap(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Tag(), err)
	}
	if in.Size() == 0 {
		return nn.Shape{0, 0, c}, nil
	}
	if p.Padding == PaddingValid && (p.PoolT > t || p.PoolF > f) {
		return nil, fmt.Errorf("%s: window exceeds %dx%d feature map", p.Tag(), t, f)
	}
	ot, of, _, err := windowOutput(in, p.PoolT, p.PoolF, p.StrideT, p.StrideF, p.Padding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Tag(), err)
	}
	return nn.Shape{ot, of, c}, nil
}

func (Pool2D) Params(nn.Shape) int { return 0 }
