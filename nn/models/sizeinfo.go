package models

import (
	"fmt"

	"kws_lib/nn"
)

// SizeInfo is the ds_cnn size description: the number of layers followed,
// per layer, by feature count, kernel time, kernel frequency, stride time
// and stride frequency.
type SizeInfo []int

// fieldsPerLayer is the number of SizeInfo entries per layer.
const fieldsPerLayer = 5

// ConvSpec is one decoded SizeInfo layer.
type ConvSpec struct {
	Features int
	KernelT  int
	KernelF  int
	StrideT  int
	StrideF  int
}

// Specs decodes and validates the size info. The vector must hold exactly
// 1+5*num_layers positive entries.
func (s SizeInfo) Specs() ([]ConvSpec, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty model size info", nn.ErrInvalidConfiguration)
	}
	n := s[0]
	if n < 1 {
		return nil, fmt.Errorf("%w: model size info declares %d layers", nn.ErrInvalidConfiguration, n)
	}
	if want := 1 + fieldsPerLayer*n; len(s) != want {
		return nil, fmt.Errorf("%w: model size info for %d layers needs %d values, got %d",
			nn.ErrInvalidConfiguration, n, want, len(s))
	}
	for i, v := range s[1:] {
		if v <= 0 {
			return nil, fmt.Errorf("%w: model size info layer %d field %d is %d, must be positive",
				nn.ErrInvalidConfiguration, i/fieldsPerLayer, i%fieldsPerLayer, v)
		}
	}
	specs := make([]ConvSpec, n)
	for i := range specs {
		f := s[1+i*fieldsPerLayer:]
		specs[i] = ConvSpec{Features: f[0], KernelT: f[1], KernelF: f[2], StrideT: f[3], StrideF: f[4]}
	}
	return specs, nil
}
