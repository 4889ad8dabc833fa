package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldemailly/leandeps/graph"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		rel  string
		want []string
	}{
		{"foo/default.lean", []string{"foo"}},
		{"foo/bar.lean", []string{"foo", "bar"}},
		{"foo/bar/default.lean", []string{"foo", "bar"}},
		{"default/foo.lean", []string{"foo"}},
		{"top.lean", []string{"top"}},
		{"default.lean", nil},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, ModuleName(tt.rel, ".lean"))
		})
	}
}

func TestLocal_List(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "data/list.lean", "")
	writeFile(t, root, "data/default.lean", "")
	writeFile(t, root, "README.md", "")
	writeFile(t, root, ".hidden/x.lean", "")
	writeFile(t, root, "_target/deps/y.lean", "")
	writeFile(t, root, "scratch.lean", "")
	writeFile(t, root, ".gitignore", "_target/\nscratch.lean\n")

	l, err := NewLocal(root)
	require.NoError(t, err)
	files, err := l.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", "data/default.lean", "data/list.lean"}, files)

	data, err := l.ReadFile(context.Background(), "data/list.lean")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNewLocal_NotADirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "f.lean", "")
	_, err := NewLocal(filepath.Join(root, "f.lean"))
	assert.ErrorContains(t, err, "not a directory")
	_, err = NewLocal(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "init/core.lean", "prelude\n")
	writeFile(t, root, "init/default.lean", "prelude\nimport init.core\n")
	writeFile(t, root, "data/list/basic.lean", "import init data.nat\n-- comment\ntheorem x : true := trivial\n")
	writeFile(t, root, "data/nat.lean", "/- header -/ import init\n")
	writeFile(t, root, "notes.txt", "import nothing")

	l, err := NewLocal(root)
	require.NoError(t, err)
	g := graph.New()
	stats, err := Ingest(context.Background(), g, []Source{l}, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 4, Imports: 4}, stats)

	// Sorted path order: data/list/basic, data/nat, init/core, init/default.
	assert.Equal(t, "data.list.basic", g.Name(0))
	basic, ok := g.Get(0)
	require.True(t, ok)
	assert.False(t, basic.Prelude)
	assert.Equal(t, []string{"init", "data.nat"}, []string{g.Name(basic.Deps[0]), g.Name(basic.Deps[1])})

	initID, ok := g.Names.Lookup("init")
	require.True(t, ok)
	initMod, ok := g.Get(initID)
	require.True(t, ok)
	assert.True(t, initMod.Prelude)

	assert.Empty(t, g.DanglingImports())
}

func TestIngest_DuplicateName(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "a/b.lean", "")
	writeFile(t, root, "a/b/default.lean", "")

	l, err := NewLocal(root)
	require.NoError(t, err)
	_, err = Ingest(context.Background(), graph.New(), []Source{l}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrDuplicateRegistration))
}

// memSource is an in-memory Source for exercising error paths.
type memSource struct {
	files   map[string]string
	failing map[string]bool
}

func (m *memSource) Root() string { return "mem" }

func (m *memSource) List(context.Context) ([]string, error) {
	var out []string
	for p := range m.files {
		out = append(out, p)
	}
	return out, nil
}

func (m *memSource) ReadFile(_ context.Context, rel string) ([]byte, error) {
	if m.failing[rel] {
		return nil, fmt.Errorf("boom %s", rel)
	}
	return []byte(m.files[rel]), nil
}

func TestIngest_UnreadableFileIsSkipped(t *testing.T) {
	src := &memSource{
		files:   map[string]string{"a.lean": "import b", "b.lean": "", "c.lean": ""},
		failing: map[string]bool{"b.lean": true},
	}
	g := graph.New()
	stats, err := Ingest(context.Background(), g, []Source{src}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []graph.Dangling{{Module: "a", Import: "b"}}, g.DanglingImports())
}

func TestIngest_Canceled(t *testing.T) {
	src := &memSource{files: map[string]string{"a.lean": ""}, failing: map[string]bool{"a.lean": true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Ingest(ctx, graph.New(), []Source{src}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
