package nn

import "encoding/json"

type nodeJSON struct {
	Index  int    `json:"index"`
	Block  int    `json:"block"`
	Kind   Kind   `json:"kind"`
	Tag    string `json:"tag"`
	Config Layer  `json:"config"`
	Input  Shape  `json:"input"`
	Output Shape  `json:"output"`
	Params int    `json:"params"`
}

type topologyJSON struct {
	Name        string     `json:"name"`
	Input       Shape      `json:"input"`
	Output      Shape      `json:"output"`
	Nodes       []nodeJSON `json:"nodes"`
	TotalParams int        `json:"total_params"`
}

// MarshalJSON encodes the topology for external graph viewers. Layer
// parameters are emitted under "config" using each descriptor's own tags.
func (t *Topology) MarshalJSON() ([]byte, error) {
	out := topologyJSON{
		Name:        t.name,
		Input:       t.input,
		Output:      t.Output(),
		Nodes:       make([]nodeJSON, len(t.nodes)),
		TotalParams: t.TotalParams(),
	}
	for i, n := range t.nodes {
		out.Nodes[i] = nodeJSON{
			Index:  n.Index,
			Block:  n.Block,
			Kind:   n.Layer.Kind(),
			Tag:    n.Layer.Tag(),
			Config: n.Layer,
			Input:  n.Input,
			Output: n.Output,
			Params: n.Params,
		}
	}
	return json.Marshal(out)
}
