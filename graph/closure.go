package graph

import (
	"sort"

	"fortio.org/log"
)

// Set is a set of module IDs.
type Set map[ID]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ID order.
func (s Set) Sorted() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Adjacency maps a module to the modules it points at.
type Adjacency map[ID][]ID

// Edges flattens the adjacency into edges, by source ID then list order.
func (a Adjacency) Edges() []Edge {
	from := make([]ID, 0, len(a))
	for id := range a {
		from = append(from, id)
	}
	sort.Slice(from, func(i, j int) bool { return from[i] < from[j] })
	var edges []Edge
	for _, f := range from {
		for _, t := range a[f] {
			edges = append(edges, Edge{From: f, To: t})
		}
	}
	return edges
}

// Analyzer computes transitive closures and the display reduction over a
// frozen graph. Closures are memoized for the lifetime of the Analyzer.
type Analyzer struct {
	g        *Graph
	closure  map[ID]Set
	computed int
}

// NewAnalyzer returns an analyzer over g. g must not change afterwards.
func NewAnalyzer(g *Graph) *Analyzer {
	return &Analyzer{g: g, closure: make(map[ID]Set)}
}

// Computed is the number of closures actually computed so far; memo hits
// do not count.
func (a *Analyzer) Computed() int {
	return a.computed
}

func (a *Analyzer) deps(id ID) []ID {
	m, ok := a.g.Modules.Get(id)
	if !ok {
		return nil // dangling: a leaf
	}
	return m.Deps
}

type frame struct {
	id   ID
	next int // index of the next dependency to visit
}

// Closure returns every module reachable from id through one or more
// imports. It fails with a *CycleError if id's imports loop back onto the
// path being explored.
func (a *Analyzer) Closure(id ID) (Set, error) {
	if s, ok := a.closure[id]; ok {
		return s, nil
	}
	stack := []frame{{id: id}}
	onPath := map[ID]bool{id: true}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := a.deps(top.id)
		if top.next < len(deps) {
			d := deps[top.next]
			top.next++
			if _, done := a.closure[d]; done {
				continue
			}
			if onPath[d] {
				return nil, a.cycle(stack, d)
			}
			onPath[d] = true
			stack = append(stack, frame{id: d})
			continue
		}
		s := make(Set)
		for _, d := range deps {
			s[d] = struct{}{}
			for r := range a.closure[d] {
				s[r] = struct{}{}
			}
		}
		a.closure[top.id] = s
		a.computed++
		delete(onPath, top.id)
		stack = stack[:len(stack)-1]
	}
	return a.closure[id], nil
}

func (a *Analyzer) cycle(stack []frame, back ID) *CycleError {
	start := 0
	for i, f := range stack {
		if f.id == back {
			start = i
			break
		}
	}
	e := &CycleError{}
	for _, f := range stack[start:] {
		e.Path = append(e.Path, f.id)
	}
	e.Path = append(e.Path, back)
	for _, id := range e.Path {
		e.Names = append(e.Names, a.g.Name(id))
	}
	return e
}

// Closures computes the closure of every module, roots in ID order, and
// returns the memo. The first cycle found aborts the pass.
func (a *Analyzer) Closures() (map[ID]Set, error) {
	for _, m := range a.g.Modules.All() {
		if _, err := a.Closure(m.ID); err != nil {
			return nil, err
		}
	}
	log.LogVf("Closures ready: %d computed, %d memoized", a.computed, len(a.closure))
	return a.closure, nil
}

// ClosureEdges returns, per module, its whole closure in ID order.
func (a *Analyzer) ClosureEdges() (Adjacency, error) {
	all, err := a.Closures()
	if err != nil {
		return nil, err
	}
	adj := make(Adjacency)
	for _, m := range a.g.Modules.All() {
		adj[m.ID] = all[m.ID].Sorted()
	}
	return adj, nil
}

// Reduce returns, per module, the imports not already reachable through
// another import of the same module, in first import order. This is the
// display approximation of a transitive reduction, done by set subtraction:
// imports that imply each other would both be kept. Closures reject
// cycles, so that case never reaches the output.
func (a *Analyzer) Reduce() (Adjacency, error) {
	all, err := a.Closures()
	if err != nil {
		return nil, err
	}
	adj := make(Adjacency)
	for _, m := range a.g.Modules.All() {
		implied := make(Set)
		for _, d := range m.Deps {
			for r := range all[d] {
				implied[r] = struct{}{}
			}
		}
		seen := make(Set)
		direct := []ID{}
		for _, d := range m.Deps {
			if seen.Has(d) || implied.Has(d) {
				continue
			}
			seen[d] = struct{}{}
			direct = append(direct, d)
		}
		adj[m.ID] = direct
	}
	return adj, nil
}
