package plain

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"kws_lib/nn"
	"kws_lib/nn/layers"
	"kws_lib/tensor"
)

// paramShapes lists the parameter tensors a node carries, in a fixed order,
// with the fan-in used to scale its initial kernel.
func paramShapes(node nn.Node) (names []string, shapes [][]int, fanIn int) {
	c := 0
	if len(node.Input) > 0 {
		c = node.Input[len(node.Input)-1]
	}
	switch l := node.Layer.(type) {
	case layers.Conv2D:
		return []string{ParamKernel, ParamBias},
			[][]int{{l.KernelT, l.KernelF, c, l.Filters}, {l.Filters}},
			l.KernelT * l.KernelF * c
	case layers.DepthwiseConv2D:
		return []string{ParamKernel, ParamBias},
			[][]int{{l.KernelT, l.KernelF, c, l.Multiplier}, {c * l.Multiplier}},
			l.KernelT * l.KernelF
	case layers.PointwiseConv2D:
		return []string{ParamKernel, ParamBias},
			[][]int{{1, 1, c, l.Filters}, {l.Filters}},
			c
	case layers.BatchNorm:
		return []string{ParamGamma, ParamBeta, ParamMean, ParamVariance},
			[][]int{{c}, {c}, {c}, {c}},
			0
	case layers.Dense:
		in := node.Input.Size()
		return []string{ParamKernel, ParamBias},
			[][]int{{in, l.Units}, {l.Units}},
			in
	}
	return nil, nil, 0
}

// Instantiate gives every node of t concrete parameters. Kernels are drawn
// uniformly from ±1/sqrt(fan_in) with the given seed, biases start at zero
// and batch normalization starts as the identity.
func Instantiate(t *nn.Topology, seed int64, opts ...Option) (*Network, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil topology", nn.ErrInvalidConfiguration)
	}
	o := applyOptions(opts)
	src := rand.NewSource(uint64(seed))

	n := &Network{topo: t}
	total := 0
	for _, node := range t.Nodes() {
		u := unit{node: node, params: map[string]*tensor.Tensor{}}
		names, shapes, fanIn := paramShapes(node)
		for i, name := range names {
			p := tensor.New(shapes[i]...)
			switch name {
			case ParamKernel:
				fillUniform(p.Data, fanIn, src)
			case ParamGamma, ParamVariance:
				for j := range p.Data {
					p.Data[j] = 1
				}
			}
			u.params[name] = p
			total += p.Len()
		}
		n.units = append(n.units, u)
	}

	if total != t.TotalParams() {
		return nil, fmt.Errorf("%s: instantiated %d parameters, topology counts %d", t.Name(), total, t.TotalParams())
	}
	o.logger.Debug("instantiated network",
		zap.String("model", t.Name()),
		zap.Int64("seed", seed),
		zap.Int("params", total))
	return n, nil
}

func fillUniform(data []float64, fanIn int, src rand.Source) {
	if fanIn <= 0 {
		return
	}
	limit := 1 / math.Sqrt(float64(fanIn))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
	for i := range data {
		data[i] = dist.Rand()
	}
}
