package models

import (
	"fmt"

	"go.uber.org/zap"

	"kws_lib/nn"
	"kws_lib/nn/layers"
)

// DefaultDSCNNSizeInfo is the five-layer, 64-feature DS-CNN.
var DefaultDSCNNSizeInfo = SizeInfo{5,
	64, 10, 4, 2, 2,
	64, 3, 3, 1, 1,
	64, 3, 3, 1, 1,
	64, 3, 3, 1, 1,
	64, 3, 3, 1, 1,
}

// Option configures a build.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger routes build diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Build creates the topology of the requested architecture. info is only
// read by DSCNN.
func Build(ms nn.ModelSettings, arch Architecture, info SizeInfo, opts ...Option) (*nn.Topology, error) {
	var (
		t   *nn.Topology
		err error
	)
	switch arch {
	case MicroSpeech:
		t, err = BuildMicroSpeech(ms, opts...)
	case Custom:
		t, err = BuildCustom(ms, opts...)
	case Custom2:
		t, err = BuildCustom2(ms, opts...)
	case DSCNN:
		t, err = BuildDSCNN(ms, info, opts...)
	default:
		return nil, fmt.Errorf("%w: model_architecture argument %s not recognized", nn.ErrInvalidConfiguration, arch)
	}
	if err != nil {
		return nil, err
	}
	newOptions(opts).log.Debug("built topology",
		zap.Stringer("architecture", arch),
		zap.Int("layers", t.Len()),
		zap.Int("params", t.TotalParams()),
		zap.Int("fingerprint_size", t.InputSize()))
	return t, nil
}

// BuildNamed parses the model_architecture string and builds it.
func BuildNamed(ms nn.ModelSettings, name string, info SizeInfo, opts ...Option) (*nn.Topology, error) {
	arch, err := ParseArchitecture(name)
	if err != nil {
		return nil, err
	}
	return Build(ms, arch, info, opts...)
}

func checkSettings(ms nn.ModelSettings) error {
	switch {
	case ms.LabelCount <= 0:
		return fmt.Errorf("%w: label count %d must be positive", nn.ErrInvalidConfiguration, ms.LabelCount)
	case ms.DCTCoefficientCount <= 0:
		return fmt.Errorf("%w: dct coefficient count %d must be positive", nn.ErrInvalidConfiguration, ms.DCTCoefficientCount)
	case ms.SpectrogramLength < 0, ms.FingerprintSize < 0:
		return fmt.Errorf("%w: negative spectrogram length %d or fingerprint size %d",
			nn.ErrInvalidConfiguration, ms.SpectrogramLength, ms.FingerprintSize)
	}
	return nil
}

// input returns the flat input shape and the reshape that opens every model.
func input(ms nn.ModelSettings) (nn.Shape, nn.Step) {
	t, f := ms.InputShape()
	return nn.Shape{ms.FingerprintSize}, nn.Step{Block: nn.StemBlock, Layer: layers.NewReshape(t, f)}
}

// logInputGrid records the feature map a fixed architecture starts from.
func logInputGrid(o options, arch Architecture, ms nn.ModelSettings) {
	t, f := ms.InputShape()
	o.log.Debug("fixed architecture input grid",
		zap.Stringer("architecture", arch),
		zap.Int("t_dim", t),
		zap.Int("f_dim", f),
		zap.Bool("degenerate", ms.Degenerate()))
}

func head(layer nn.Layer) nn.Step { return nn.Step{Block: nn.StemBlock, Layer: layer} }

// BuildMicroSpeech creates a single depthwise convolution followed by a
// fully connected classifier.
func BuildMicroSpeech(ms nn.ModelSettings, opts ...Option) (*nn.Topology, error) {
	if err := checkSettings(ms); err != nil {
		return nil, err
	}
	logInputGrid(newOptions(opts), MicroSpeech, ms)
	in, reshape := input(ms)
	return nn.NewTopology(MicroSpeech.String(), in,
		reshape,
		nn.Step{Block: 0, Layer: layers.NewDepthwiseConv2D(8, 10, 8, 2, 2).WithActivation(layers.ReLU)},
		head(layers.Flatten{}),
		head(layers.NewSoftmaxDense(ms.LabelCount)),
	)
}

// BuildCustom creates depthwise conv, max pool and conv with 8 channels.
func BuildCustom(ms nn.ModelSettings, opts ...Option) (*nn.Topology, error) {
	return buildCustom(ms, Custom, 8, 8, newOptions(opts))
}

// BuildCustom2 is BuildCustom with 16 channels.
func BuildCustom2(ms nn.ModelSettings, opts ...Option) (*nn.Topology, error) {
	return buildCustom(ms, Custom2, 16, 16, newOptions(opts))
}

func buildCustom(ms nn.ModelSettings, arch Architecture, multiplier, filters int, o options) (*nn.Topology, error) {
	if err := checkSettings(ms); err != nil {
		return nil, err
	}
	logInputGrid(o, arch, ms)
	in, reshape := input(ms)
	return nn.NewTopology(arch.String(), in,
		reshape,
		nn.Step{Block: 0, Layer: layers.NewDepthwiseConv2D(multiplier, 20, 8, 1, 1).WithActivation(layers.ReLU)},
		nn.Step{Block: 0, Layer: layers.NewMaxPool2D(2, 2)},
		nn.Step{Block: 0, Layer: layers.NewConv2D(filters, 10, 4, 1, 1).WithActivation(layers.ReLU)},
		head(layers.Flatten{}),
		head(layers.NewSoftmaxDense(ms.LabelCount)),
	)
}

// BuildDSCNN creates the depthwise separable CNN described by info
// (see https://arxiv.org/abs/1711.07128). Layer 0 is a standard convolution;
// every further layer is a depthwise convolution, whose stride is applied
// as (stride_f, stride_t), followed by a 1x1 pointwise convolution. The
// global pool window tracks ceil(dim/stride) with the unswapped strides.
func BuildDSCNN(ms nn.ModelSettings, info SizeInfo, opts ...Option) (*nn.Topology, error) {
	o := newOptions(opts)
	if err := checkSettings(ms); err != nil {
		return nil, err
	}
	specs, err := info.Specs()
	if err != nil {
		return nil, fmt.Errorf("ds_cnn: %w", err)
	}

	in, reshape := input(ms)
	tDim, fDim := ms.InputShape()
	steps := []nn.Step{reshape}
	for i, s := range specs {
		block := func(l nn.Layer) nn.Step { return nn.Step{Block: i, Layer: l} }
		if i == 0 {
			steps = append(steps,
				block(layers.NewConv2D(s.Features, s.KernelT, s.KernelF, s.StrideT, s.StrideF)),
				block(layers.NewBatchNorm()),
				block(layers.NewReLU()),
			)
		} else {
			if s.StrideT != s.StrideF {
				o.log.Warn("ds_cnn depthwise stride applied with swapped axes",
					zap.Int("layer", i),
					zap.Int("stride_t", s.StrideT),
					zap.Int("stride_f", s.StrideF))
			}
			steps = append(steps,
				block(layers.NewDepthwiseConv2D(1, s.KernelT, s.KernelF, s.StrideF, s.StrideT)),
				block(layers.NewBatchNorm()),
				block(layers.NewReLU()),
				block(layers.NewPointwiseConv2D(s.Features)),
				block(layers.NewBatchNorm()),
				block(layers.NewReLU()),
			)
		}
		tDim = ceilDiv(tDim, s.StrideT)
		fDim = ceilDiv(fDim, s.StrideF)
	}
	o.log.Debug("ds_cnn global pool window", zap.Int("t_dim", tDim), zap.Int("f_dim", fDim))

	steps = append(steps,
		head(layers.NewAvgPool2D(tDim, fDim)),
		head(layers.Squeeze{Features: specs[len(specs)-1].Features}),
		head(layers.NewSoftmaxDense(ms.LabelCount)),
	)
	return nn.NewTopology(DSCNN.String(), in, steps...)
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
