package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Local is a directory on disk.
type Local struct {
	root string
	gi   *ignore.GitIgnore // nil when the root has no .gitignore
}

// NewLocal checks that root is a directory and loads its .gitignore, if any.
func NewLocal(root string) (*Local, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}
	l := &Local{root: root}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		l.gi = gi
	}
	return l, nil
}

func (l *Local) Root() string {
	return l.root
}

// List walks the directory. Hidden entries, symlinks and anything matched
// by the root .gitignore are skipped.
func (l *Local) List(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == l.root {
			return nil
		}
		name := d.Name()
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || l.ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 || l.ignored(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (l *Local) ignored(rel string) bool {
	return l.gi != nil && l.gi.MatchesPath(rel)
}

// ReadFile reads rel under the root.
func (l *Local) ReadFile(_ context.Context, rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, filepath.FromSlash(rel)))
}
