// Package models assembles the keyword-spotting topologies from model
// settings and, for ds_cnn, a size-info vector.
package models

import (
	"fmt"

	"kws_lib/nn"
)

// Architecture selects one of the fixed topology templates.
type Architecture int

const (
	MicroSpeech Architecture = iota // single depthwise conv + dense
	Custom                          // depthwise conv, max pool, conv, dense
	Custom2                         // Custom with twice the channels
	DSCNN                           // parametric depthwise separable CNN
)

var architectureNames = map[Architecture]string{
	MicroSpeech: "micro_speech",
	Custom:      "custom",
	Custom2:     "custom2",
	DSCNN:       "ds_cnn",
}

// Architectures lists every selector in declaration order.
func Architectures() []Architecture {
	return []Architecture{MicroSpeech, Custom, Custom2, DSCNN}
}

func (a Architecture) String() string {
	if name, ok := architectureNames[a]; ok {
		return name
	}
	return fmt.Sprintf("architecture(%d)", int(a))
}

// ParseArchitecture maps a model_architecture string to its selector.
func ParseArchitecture(name string) (Architecture, error) {
	for a, n := range architectureNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: model_architecture argument %s not recognized", nn.ErrInvalidConfiguration, name)
}

// UnmarshalText lets selectors be read straight from config files.
func (a *Architecture) UnmarshalText(b []byte) error {
	parsed, err := ParseArchitecture(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText encodes the selector by name.
func (a Architecture) MarshalText() ([]byte, error) {
	name, ok := architectureNames[a]
	if !ok {
		return nil, fmt.Errorf("%w: unknown architecture %d", nn.ErrInvalidConfiguration, int(a))
	}
	return []byte(name), nil
}
