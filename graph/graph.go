// Package graph holds the module dependency graph: interned module names,
// the per module records, and the read-only analysis passes run over them
// once ingestion is done.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// ID is a dense, opaque module identifier. IDs are handed out in
// registration order starting at 0 and are never reused.
type ID int

func (id ID) String() string {
	return "#" + strconv.Itoa(int(id))
}

// Module is what a single source file contributes to the graph.
type Module struct {
	ID      ID
	Prelude bool // file starts with the prelude marker
	Deps    []ID // in import order, duplicates kept
}

// Edge is one (module, imported module) pair.
type Edge struct {
	From ID
	To   ID // may have no Module (dangling)
}

// Registry interns dotted module names into IDs.
type Registry struct {
	mu    sync.Mutex
	names []string      // ID -> name
	ids   map[string]ID // name -> ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]ID)}
}

// Register returns the ID for name, allocating the next one if the name was
// never seen before.
func (r *Registry) Register(name string) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := ID(len(r.names))
	r.names = append(r.names, name)
	r.ids[name] = id
	return id
}

// Lookup returns the ID of an already registered name.
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[name]
	return id, ok
}

// Name returns the dotted name id was registered with. It panics on an ID
// that this registry never allocated.
func (r *Registry) Name(id ID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[id]
}

// Len is the number of distinct names registered so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// Store keeps one Module per ID.
type Store struct {
	modules map[ID]*Module
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{modules: make(map[ID]*Module)}
}

// Insert records the module for id. A second insert for the same id is an
// ingestion bug and returns a *DuplicateRegistrationError.
func (s *Store) Insert(id ID, prelude bool, deps []ID) error {
	if _, exists := s.modules[id]; exists {
		return &DuplicateRegistrationError{ID: id}
	}
	s.modules[id] = &Module{ID: id, Prelude: prelude, Deps: deps}
	return nil
}

// Get returns the module for id. A miss means id was only ever seen as an
// import target.
func (s *Store) Get(id ID) (*Module, bool) {
	m, ok := s.modules[id]
	return m, ok
}

// Len is the number of stored modules.
func (s *Store) Len() int {
	return len(s.modules)
}

// All returns every stored module. Callers must not rely on the order; it
// happens to be ID order.
func (s *Store) All() []*Module {
	all := make([]*Module, 0, len(s.modules))
	for _, m := range s.modules {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Edges lists every dependency edge, by source ID then import order.
func (s *Store) Edges() []Edge {
	var edges []Edge
	for _, m := range s.All() {
		for _, d := range m.Deps {
			edges = append(edges, Edge{From: m.ID, To: d})
		}
	}
	return edges
}

// Graph ties a Registry and a Store together. It is filled during a single
// ingestion pass and only read afterwards.
type Graph struct {
	Names   *Registry
	Modules *Store
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Names: NewRegistry(), Modules: NewStore()}
}

// AddModule registers name and its imports and stores the module record.
func (g *Graph) AddModule(name string, prelude bool, imports []string) (ID, error) {
	id := g.Names.Register(name)
	deps := make([]ID, 0, len(imports))
	for _, imp := range imports {
		deps = append(deps, g.Names.Register(imp))
	}
	if err := g.Modules.Insert(id, prelude, deps); err != nil {
		return id, fmt.Errorf("module %s: %w", name, err)
	}
	return id, nil
}

// Name is a shortcut for g.Names.Name.
func (g *Graph) Name(id ID) string {
	return g.Names.Name(id)
}

// Get is a shortcut for g.Modules.Get.
func (g *Graph) Get(id ID) (*Module, bool) {
	return g.Modules.Get(id)
}
