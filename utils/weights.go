package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"kws_lib/tensor"
)

// WeightsVersion tags the on-disk weights format.
const WeightsVersion = "kws-weights/1"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model, keyed by node name.
type ModelWeights struct {
	Version      string                 `json:"version"`
	Architecture string                 `json:"architecture"`
	Layers       map[string]LayerWeight `json:"layers"`
}

// LayerWeight holds the parameters of one node. Convolutions and dense
// layers fill Weight and Bias; batch normalization fills the other four.
type LayerWeight struct {
	Weight   *WeightData `json:"weight,omitempty"`
	Bias     *WeightData `json:"bias,omitempty"`
	Gamma    *WeightData `json:"gamma,omitempty"`
	Beta     *WeightData `json:"beta,omitempty"`
	Mean     *WeightData `json:"moving_mean,omitempty"`
	Variance *WeightData `json:"moving_variance,omitempty"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if weights.Version != WeightsVersion {
		return nil, fmt.Errorf("unsupported weights version %q", weights.Version)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor. The data length
// must match the shape.
func WeightDataToTensor(wd *WeightData) (*tensor.Tensor, error) {
	if wd == nil {
		return nil, fmt.Errorf("missing weight data")
	}
	t := tensor.New(wd.Shape...)
	if len(wd.Data) != len(t.Data) {
		return nil, fmt.Errorf("weight %s: %d values for shape %v", wd.Name, len(wd.Data), wd.Shape)
	}
	copy(t.Data, wd.Data)
	return t, nil
}
