package graph

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build adds one module per entry; a nil import list still creates the module.
func build(t *testing.T, modules map[string][]string, order ...string) *Graph {
	t.Helper()
	g := New()
	for _, name := range order {
		_, err := g.AddModule(name, false, modules[name])
		require.NoError(t, err)
	}
	return g
}

func id(t *testing.T, g *Graph, name string) ID {
	t.Helper()
	i, ok := g.Names.Lookup(name)
	require.True(t, ok, "name %q not registered", name)
	return i
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Register("data.list")
	b := r.Register("init.core")
	again := r.Register("data.list")

	assert.Equal(t, ID(0), a)
	assert.Equal(t, ID(1), b)
	assert.Equal(t, a, again)
	assert.Equal(t, "data.list", r.Name(a))
	assert.Equal(t, "init.core", r.Name(b))
	assert.Equal(t, 2, r.Len())

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentRegisterStaysDense(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Register(fmt.Sprintf("m%d", i))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 100, r.Len())
	seen := make(map[string]bool)
	for i := 0; i < r.Len(); i++ {
		name := r.Name(ID(i))
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
		got, ok := r.Lookup(name)
		assert.True(t, ok)
		assert.Equal(t, ID(i), got)
	}
}

func TestStore_DuplicateInsert(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(3, false, nil))
	err := s.Insert(3, true, []ID{1})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRegistration))
	var dup *DuplicateRegistrationError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ID(3), dup.ID)

	m, ok := s.Get(3)
	require.True(t, ok)
	assert.False(t, m.Prelude, "first record must win")
}

func TestGraph_AddModuleTwice(t *testing.T) {
	g := New()
	_, err := g.AddModule("data.list", false, nil)
	require.NoError(t, err)
	_, err = g.AddModule("data.list", false, []string{"init"})
	require.ErrorIs(t, err, ErrDuplicateRegistration)
	assert.Contains(t, err.Error(), "data.list")
}

func TestStore_EdgesKeepImportOrderAndDuplicates(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"c", "b", "c"},
	}, "a")
	var got []string
	for _, e := range g.Modules.Edges() {
		got = append(got, g.Name(e.From)+">"+g.Name(e.To))
	}
	assert.Equal(t, []string{"a>c", "a>b", "a>c"}, got)
	assert.Equal(t, 1, g.Modules.Len())
	assert.Len(t, g.Modules.All(), 1)
}

func TestDanglingImports(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"Z", "b"},
		"b": nil,
	}, "a", "b")

	found := g.DanglingImports()
	require.Len(t, found, 1)
	assert.Equal(t, Dangling{Module: "a", Import: "Z"}, found[0])
	assert.Equal(t, "module Z (in a) not found", found[0].String())
	assert.ErrorIs(t, found[0].Err(), ErrDanglingDependency)

	// Not fatal: the rest of the analysis still runs.
	red, err := NewAnalyzer(g).Reduce()
	require.NoError(t, err)
	assert.Len(t, red[id(t, g, "a")], 2)
}

func TestLocalImports(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {".rel.path", "b"},
		"b": {".other"},
	}, "a", "b")

	err := g.LocalImports()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedLocalImport)
	var li *LocalImportError
	require.True(t, errors.As(err, &li))
	assert.Equal(t, []LocalImport{
		{Module: "a", Import: ".rel.path"},
		{Module: "b", Import: ".other"},
	}, li.Imports)
	assert.Equal(t, "local module syntax used in a for .rel.path", li.Imports[0].String())

	clean := build(t, map[string][]string{"a": {"b"}}, "a")
	assert.NoError(t, clean.LocalImports())
}

func TestPreludeImports(t *testing.T) {
	g := New()
	_, err := g.AddModule("init.core", true, nil)
	require.NoError(t, err)
	_, err = g.AddModule("init.logic", true, []string{"init.core"})
	require.NoError(t, err)
	_, err = g.AddModule("data.list", false, []string{"init.logic", "missing"})
	require.NoError(t, err)

	found := g.PreludeImports()
	require.Len(t, found, 1)
	assert.Equal(t, "data.list", g.Name(found[0].From))
	assert.Equal(t, "init.logic", g.Name(found[0].To))
}
