// Package dupgraph exports duplicate function groups as a lattice graph.
package dupgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/StanHash/samefunc/internal/output"
)

// Build constructs a lattice.Graph from duplicate groups. Every name
// becomes a node, and the first name of each group links to the others,
// so each group renders as a star around its first-seen symbol.
func Build(groups []output.Group) *lattice.Graph {
	g := &lattice.Graph{}
	for _, grp := range groups {
		if len(grp.Names) == 0 {
			continue
		}
		root := grp.Names[0]
		g.Nodes = append(g.Nodes, root)
		for _, name := range grp.Names[1:] {
			g.Nodes = append(g.Nodes, name)
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: root,
				Callee: name,
			})
		}
	}
	g.Dedup()
	return g
}

// DOT renders the groups as Graphviz text.
func DOT(groups []output.Group, title string) string {
	return render.DOT(Build(groups), title)
}
