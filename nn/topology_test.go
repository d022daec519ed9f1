package nn

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// dummy layer: doubles the last dimension
type widenLayer struct{ Factor int }

func (l widenLayer) Kind() Kind  { return KindConv }
func (l widenLayer) Tag() string { return "Widen" }
func (l widenLayer) OutputShape(in Shape) (Shape, error) {
	out := in.Clone()
	out[len(out)-1] *= l.Factor
	return out, nil
}
func (l widenLayer) Params(in Shape) int { return in.Size() }

// dummy layer: always fails
type failLayer struct{}

func (failLayer) Kind() Kind                        { return KindPooling }
func (failLayer) Tag() string                       { return "Fail" }
func (failLayer) OutputShape(Shape) (Shape, error) { return nil, errors.New("fail") }
func (failLayer) Params(Shape) int                 { return 0 }

func TestNewTopologyChainsShapes(t *testing.T) {
	topo, err := NewTopology("widen", Shape{2, 3},
		Step{Block: StemBlock, Layer: widenLayer{Factor: 2}},
		Step{Block: 0, Layer: widenLayer{Factor: 3}},
		Step{Block: 1, Layer: widenLayer{Factor: 1}},
	)
	require.NoError(t, err)
	require.Equal(t, 3, topo.Len())
	require.Equal(t, Shape{2, 6}, topo.Node(0).Output)
	require.Equal(t, Shape{2, 6}, topo.Node(1).Input)
	require.Equal(t, Shape{2, 18}, topo.Output())
	require.Equal(t, 6+12+36, topo.TotalParams())
	require.Equal(t, 6, topo.InputSize())

	blocks := topo.Blocks()
	require.Len(t, blocks, 2)
	require.Len(t, blocks[0], 1)
	require.Equal(t, 1, blocks[0][0].Index)
}

func TestTopologyAccessorsCopy(t *testing.T) {
	topo, err := NewTopology("widen", Shape{2, 3}, Step{Layer: widenLayer{Factor: 2}})
	require.NoError(t, err)

	in := topo.Input()
	in[0] = 99
	nodes := topo.Nodes()
	nodes[0].Output[0] = 99
	require.Equal(t, Shape{2, 3}, topo.Input())
	require.Equal(t, Shape{2, 6}, topo.Node(0).Output)
}

func TestNewTopologyFailure(t *testing.T) {
	topo, err := NewTopology("broken", Shape{4}, Step{Layer: widenLayer{Factor: 1}}, Step{Layer: failLayer{}})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Nil(t, topo)

	_, err = NewTopology("nil", Shape{4}, Step{})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestTopologyEqual(t *testing.T) {
	a, err := NewTopology("w", Shape{1, 1}, Step{Layer: widenLayer{Factor: 2}})
	require.NoError(t, err)
	b, err := NewTopology("w", Shape{1, 1}, Step{Layer: widenLayer{Factor: 2}})
	require.NoError(t, err)
	c, err := NewTopology("w", Shape{1, 1}, Step{Layer: widenLayer{Factor: 3}})
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
}

func TestTopologySummaryAndJSON(t *testing.T) {
	topo, err := NewTopology("widen", Shape{2, 3}, Step{Block: 0, Layer: widenLayer{Factor: 2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, topo.Summary(&buf))
	require.Contains(t, buf.String(), `Model: "widen"`)
	require.Contains(t, buf.String(), "(None, 2, 6)")
	require.Contains(t, buf.String(), "Total params: 6")

	raw, err := json.Marshal(topo)
	require.NoError(t, err)
	var decoded struct {
		Name  string `json:"name"`
		Nodes []struct {
			Kind   Kind           `json:"kind"`
			Config map[string]int `json:"config"`
			Output []int          `json:"output"`
		} `json:"nodes"`
		TotalParams int `json:"total_params"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "widen", decoded.Name)
	require.Len(t, decoded.Nodes, 1)
	require.Equal(t, KindConv, decoded.Nodes[0].Kind)
	require.Equal(t, 2, decoded.Nodes[0].Config["Factor"])
	require.Equal(t, []int{2, 6}, decoded.Nodes[0].Output)
	require.Equal(t, 6, decoded.TotalParams)
}

func TestKindText(t *testing.T) {
	for k := KindInputReshape; k <= KindDense; k++ {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(b))
		require.Equal(t, k, back)
	}
	require.Equal(t, "depthwise-convolution", KindDepthwiseConv.String())
	require.Equal(t, "kind(42)", Kind(42).String())
}

func TestShape(t *testing.T) {
	require.Equal(t, 0, Shape{}.Size())
	require.Equal(t, 0, Shape{0, 40, 1}.Size())
	require.Equal(t, 1960, Shape{49, 40, 1}.Size())
	require.Equal(t, "(None, 49, 40)", Shape{49, 40}.String())
}
