package nn

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Summary writes a per-layer table in the spirit of Keras' model.summary.
func (t *Topology) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Model: %q\n", t.name)
	fmt.Fprintln(tw, "#\tBlock\tLayer (type)\tKind\tOutput Shape\tParam #")
	fmt.Fprintf(tw, "-\t-\tinput\t-\t%s\t0\n", t.input)
	for _, n := range t.nodes {
		block := "-"
		if n.Block >= 0 {
			block = fmt.Sprint(n.Block)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", n.Index, block, n.Layer.Tag(), n.Layer.Kind(), n.Output, n.Params)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s\nTotal params: %d\nInput size: %d\nOutput shape: %s\n",
		strings.Repeat("=", 60), t.TotalParams(), t.InputSize(), t.Output())
	return err
}
