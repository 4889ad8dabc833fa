package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	graphlib "github.com/dominikbraun/graph"
)

// Level is a group of rendered modules at the same depth: level 0 modules
// import no rendered module, level n modules import at least one module of
// level n-1 and none deeper.
type Level struct {
	Index   int
	Modules []string
}

// Levels orders the rendered nodes leaves first.
func (v View) Levels() ([]Level, error) {
	nodes := v.Nodes()
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed(), graphlib.Acyclic())
	for _, n := range nodes {
		if err := dg.AddVertex(n.Name); err != nil {
			return nil, fmt.Errorf("adding %s: %w", n.Name, err)
		}
	}
	for _, e := range v.edges(nodes) {
		if err := dg.AddEdge(e[0], e[1]); err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("adding %s -> %s: %w", e[0], e[1], err)
		}
	}
	order, err := graphlib.StableTopologicalSort(dg, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, err
	}
	adj, err := dg.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	// Importers come first in order; walk it backwards so every import is
	// leveled before the modules importing it.
	depth := make(map[string]int, len(order))
	maxDepth := -1
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		d := 0
		for dep := range adj[name] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[name] = d
		if d > maxDepth {
			maxDepth = d
		}
	}
	levels := make([]Level, maxDepth+1)
	for i := range levels {
		levels[i].Index = i
	}
	for name, d := range depth {
		levels[d].Modules = append(levels[d].Modules, name)
	}
	for i := range levels {
		sort.Strings(levels[i].Modules)
	}
	return levels, nil
}

// WriteLevels prints the levels, one "Level N:" header per level.
func WriteLevels(w io.Writer, v View) error {
	levels, err := v.Levels()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Topological Sort Levels (Leaves First):")
	for _, l := range levels {
		fmt.Fprintf(bw, "Level %d:\n", l.Index)
		for _, m := range l.Modules {
			fmt.Fprintf(bw, "  - %s\n", m)
		}
	}
	return bw.Flush()
}
