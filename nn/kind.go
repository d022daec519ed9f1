package nn

import "fmt"

// Kind tags a layer descriptor with the operation it stands for.
type Kind int

const (
	KindInputReshape Kind = iota
	KindConv
	KindDepthwiseConv
	KindPointwiseConv
	KindNormalization
	KindActivation
	KindPooling
	KindFlatten
	KindDense
)

var kindNames = [...]string{
	KindInputReshape:  "input-reshape",
	KindConv:          "standard-convolution",
	KindDepthwiseConv: "depthwise-convolution",
	KindPointwiseConv: "pointwise-convolution",
	KindNormalization: "normalization",
	KindActivation:    "activation",
	KindPooling:       "pooling",
	KindFlatten:       "flatten",
	KindDense:         "dense-output",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown layer kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown layer kind %q", string(b))
}
