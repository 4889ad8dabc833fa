package graph

import "strings"

// LocalPrefix starts every name produced by the relative import form
// (`import .foo` parses to an empty first segment).
const LocalPrefix = "."

// DanglingImports returns one finding per edge whose target was never
// ingested, in edge order.
func (g *Graph) DanglingImports() []Dangling {
	var found []Dangling
	for _, e := range g.Modules.Edges() {
		if _, ok := g.Modules.Get(e.To); !ok {
			found = append(found, Dangling{Module: g.Name(e.From), Import: g.Name(e.To)})
		}
	}
	return found
}

// LocalImports returns a *LocalImportError listing every edge that uses the
// relative import form, or nil.
func (g *Graph) LocalImports() error {
	var found []LocalImport
	for _, e := range g.Modules.Edges() {
		name := g.Name(e.To)
		if strings.HasPrefix(name, LocalPrefix) {
			found = append(found, LocalImport{Module: g.Name(e.From), Import: name})
		}
	}
	if len(found) == 0 {
		return nil
	}
	return &LocalImportError{Imports: found}
}

// PreludeImports lists edges from a regular module to a prelude module.
// Dangling targets are skipped.
func (g *Graph) PreludeImports() []Edge {
	var found []Edge
	for _, e := range g.Modules.Edges() {
		from, _ := g.Modules.Get(e.From)
		to, ok := g.Modules.Get(e.To)
		if !ok {
			continue
		}
		if !from.Prelude && to.Prelude {
			found = append(found, e)
		}
	}
	return found
}
