package plain

import (
	"fmt"

	"kws_lib/nn"
	"kws_lib/tensor"
	"kws_lib/utils"
)

// nodeName keys a node in the weights file.
func nodeName(node nn.Node) string {
	return fmt.Sprintf("%02d_%s", node.Index, node.Layer.Kind())
}

// Weights exports the network parameters.
func (n *Network) Weights() *utils.ModelWeights {
	mw := &utils.ModelWeights{
		Version:      utils.WeightsVersion,
		Architecture: n.topo.Name(),
		Layers:       map[string]utils.LayerWeight{},
	}
	for _, u := range n.units {
		if len(u.params) == 0 {
			continue
		}
		name := nodeName(u.node)
		wd := func(param string) *utils.WeightData {
			p, ok := u.params[param]
			if !ok {
				return nil
			}
			return utils.TensorToWeightData(name+"/"+param, p)
		}
		mw.Layers[name] = utils.LayerWeight{
			Weight:   wd(ParamKernel),
			Bias:     wd(ParamBias),
			Gamma:    wd(ParamGamma),
			Beta:     wd(ParamBeta),
			Mean:     wd(ParamMean),
			Variance: wd(ParamVariance),
		}
	}
	return mw
}

// LoadWeights builds a network for t from exported parameters. Every
// parameterised node must be present with the shape t implies.
func LoadWeights(t *nn.Topology, mw *utils.ModelWeights, opts ...Option) (*Network, error) {
	if mw == nil {
		return nil, fmt.Errorf("%w: nil weights", nn.ErrInvalidConfiguration)
	}
	n, err := Instantiate(t, 0, opts...)
	if err != nil {
		return nil, err
	}
	if mw.Architecture != t.Name() {
		return nil, fmt.Errorf("weights are for %q, topology is %q", mw.Architecture, t.Name())
	}
	for _, u := range n.units {
		if len(u.params) == 0 {
			continue
		}
		name := nodeName(u.node)
		lw, ok := mw.Layers[name]
		if !ok {
			return nil, fmt.Errorf("weights missing node %s", name)
		}
		stored := map[string]*utils.WeightData{
			ParamKernel:   lw.Weight,
			ParamBias:     lw.Bias,
			ParamGamma:    lw.Gamma,
			ParamBeta:     lw.Beta,
			ParamMean:     lw.Mean,
			ParamVariance: lw.Variance,
		}
		for param, p := range u.params {
			loaded, err := utils.WeightDataToTensor(stored[param])
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", name, param, err)
			}
			if !sameShape(loaded, p) {
				return nil, fmt.Errorf("%s/%s: shape %v, want %v", name, param, loaded.Shape, p.Shape)
			}
			u.params[param] = loaded
		}
	}
	return n, nil
}

func sameShape(a, b *tensor.Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}
