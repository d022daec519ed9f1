package nn

import "fmt"

// StemBlock marks nodes that belong to no convolution block: the input
// reshape and the classifier head.
const StemBlock = -1

// Step is one layer handed to NewTopology together with the block it
// belongs to.
type Step struct {
	Block int
	Layer Layer
}

// Node is a layer placed in a topology with its inferred shapes.
type Node struct {
	Index  int
	Block  int
	Layer  Layer
	Input  Shape
	Output Shape
	Params int
}

func (n Node) clone() Node {
	n.Input = n.Input.Clone()
	n.Output = n.Output.Clone()
	return n
}

// Topology is an ordered, shape-annotated list of layer descriptors. It is
// immutable once built; accessors hand out copies.
type Topology struct {
	name  string
	input Shape
	nodes []Node
}

// NewTopology chains steps starting from input, inferring every
// intermediate shape. The first failing layer aborts construction.
func NewTopology(name string, input Shape, steps ...Step) (*Topology, error) {
	t := &Topology{
		name:  name,
		input: input.Clone(),
		nodes: make([]Node, 0, len(steps)),
	}
	cur := t.input
	for i, s := range steps {
		if s.Layer == nil {
			return nil, fmt.Errorf("%w: %s: layer %d is nil", ErrInvalidConfiguration, name, i)
		}
		out, err := s.Layer.OutputShape(cur)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: layer %d (%s): %v", ErrInvalidConfiguration, name, i, s.Layer.Tag(), err)
		}
		t.nodes = append(t.nodes, Node{
			Index:  i,
			Block:  s.Block,
			Layer:  s.Layer,
			Input:  cur.Clone(),
			Output: out.Clone(),
			Params: s.Layer.Params(cur),
		})
		cur = out
	}
	return t, nil
}

func (t *Topology) Name() string { return t.name }

// Input is the flattened fingerprint shape the network accepts.
func (t *Topology) Input() Shape { return t.input.Clone() }

// InputSize is the fingerprint length the network accepts.
func (t *Topology) InputSize() int { return t.input.Size() }

// Output is the shape produced by the last layer.
func (t *Topology) Output() Shape {
	if len(t.nodes) == 0 {
		return t.input.Clone()
	}
	return t.nodes[len(t.nodes)-1].Output.Clone()
}

// Len returns the number of layers.
func (t *Topology) Len() int { return len(t.nodes) }

// Node returns the i-th node.
func (t *Topology) Node(i int) Node { return t.nodes[i].clone() }

// Nodes returns a copy of all nodes in order.
func (t *Topology) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.clone()
	}
	return out
}

// Blocks groups the nodes of each convolution block in block order.
// Stem and head nodes are left out.
func (t *Topology) Blocks() [][]Node {
	var blocks [][]Node
	for _, n := range t.nodes {
		if n.Block < 0 {
			continue
		}
		for len(blocks) <= n.Block {
			blocks = append(blocks, nil)
		}
		blocks[n.Block] = append(blocks[n.Block], n.clone())
	}
	return blocks
}

// Kinds lists the kind of every node in order.
func (t *Topology) Kinds() []Kind {
	kinds := make([]Kind, len(t.nodes))
	for i, n := range t.nodes {
		kinds[i] = n.Layer.Kind()
	}
	return kinds
}

// TotalParams sums the parameter counts of all nodes.
func (t *Topology) TotalParams() int {
	sum := 0
	for _, n := range t.nodes {
		sum += n.Params
	}
	return sum
}

// Equal reports whether two topologies describe the same network.
func (t *Topology) Equal(o *Topology) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.name != o.name || !t.input.Equal(o.input) || len(t.nodes) != len(o.nodes) {
		return false
	}
	for i := range t.nodes {
		a, b := t.nodes[i], o.nodes[i]
		if a.Block != b.Block || a.Params != b.Params || a.Layer != b.Layer ||
			!a.Input.Equal(b.Input) || !a.Output.Equal(b.Output) {
			return false
		}
	}
	return true
}
