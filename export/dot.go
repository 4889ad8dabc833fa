// Package export renders the analyzed module graph: as a DOT digraph with
// one colored cluster per category, or as topological levels.
package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"fortio.org/log"

	"github.com/ldemailly/leandeps/config"
	"github.com/ldemailly/leandeps/graph"
)

// View is what gets rendered: a frozen graph, the edge set to draw
// (reduced or full closure) and the category table deciding which modules
// are shown.
type View struct {
	Graph      *graph.Graph
	Edges      graph.Adjacency
	Categories config.Categories
}

// Options tune DOT.
type Options struct {
	LeftToRight bool
}

// Node is a module that passes the category filter.
type Node struct {
	ID       graph.ID
	Name     string
	Category config.Category
}

// TopSegment is the first segment of a dotted name.
func TopSegment(name string) string {
	top, _, _ := strings.Cut(name, ".")
	return top
}

// Nodes returns the modules to render, sorted by name: modules with a
// record, not prelude, whose top segment has a category.
func (v View) Nodes() []Node {
	var nodes []Node
	for _, m := range v.Graph.Modules.All() {
		name := v.Graph.Name(m.ID)
		if m.Prelude {
			log.LogVf("Not rendering prelude module %s", name)
			continue
		}
		cat, ok := v.Categories.Lookup(TopSegment(name))
		if !ok {
			log.LogVf("Not rendering %s: no category", name)
			continue
		}
		nodes = append(nodes, Node{ID: m.ID, Name: name, Category: cat})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// edges returns the edges between rendered nodes as name pairs, sorted.
func (v View) edges(nodes []Node) [][2]string {
	shown := make(map[graph.ID]bool, len(nodes))
	for _, n := range nodes {
		shown[n.ID] = true
	}
	seen := make(map[[2]string]bool)
	var out [][2]string
	for _, e := range v.Edges.Edges() {
		if !shown[e.From] || !shown[e.To] {
			continue
		}
		pair := [2]string{v.Graph.Name(e.From), v.Graph.Name(e.To)}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// DOT writes the view as a digraph: a cluster per category holding its
// nodes, then one edge statement per drawn edge.
func DOT(w io.Writer, v View, opts Options) error {
	nodes := v.Nodes()
	edges := v.edges(nodes)
	log.Infof("Rendering %d nodes and %d edges", len(nodes), len(edges))

	byPrefix := make(map[string][]Node)
	for _, n := range nodes {
		byPrefix[n.Category.Prefix] = append(byPrefix[n.Category.Prefix], n)
	}

	bw := bufio.NewWriter(w)
	rankDir := "TB"
	if opts.LeftToRight {
		rankDir = "LR"
	}
	fmt.Fprintln(bw, "digraph modules {")
	fmt.Fprintf(bw, "  rankdir=%s;\n", quote(rankDir))
	fmt.Fprintln(bw, `  node [shape=box, style="rounded,filled", fontname="Helvetica"];`)
	for _, cat := range v.Categories {
		members := byPrefix[cat.Prefix]
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n  subgraph %s {\n", quote("cluster_"+cat.Prefix))
		fmt.Fprintf(bw, "    label=%s;\n", quote(cat.Label))
		fmt.Fprintf(bw, "    node [fillcolor=%s];\n", quote(cat.Color))
		for _, n := range members {
			fmt.Fprintf(bw, "    %s;\n", quote(n.Name))
		}
		fmt.Fprintln(bw, "  }")
	}
	if len(edges) > 0 {
		fmt.Fprintln(bw)
	}
	for _, e := range edges {
		fmt.Fprintf(bw, "  %s -> %s;\n", quote(e[0]), quote(e[1]))
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
