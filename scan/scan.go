// Package scan turns a corpus of Lean files into a module graph: it lists
// files from one or more sources, derives module names from their paths,
// parses the headers and registers everything in a graph.Graph.
package scan

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"

	"fortio.org/log"
	"golang.org/x/sync/errgroup"

	"github.com/ldemailly/leandeps/graph"
	"github.com/ldemailly/leandeps/header"
)

// DefaultExt is the source file extension looked for by default.
const DefaultExt = ".lean"

// DefaultStem is the file or directory stem that does not contribute a
// segment to the module name: a/b/default.lean is module a.b.
const DefaultStem = "default"

// Source is a tree of files, local or remote.
type Source interface {
	// Root describes the source for messages.
	Root() string
	// List returns every regular file, as slash separated paths relative
	// to the root.
	List(ctx context.Context) ([]string, error)
	// ReadFile returns the content of a path returned by List.
	ReadFile(ctx context.Context, rel string) ([]byte, error)
}

// ModuleName maps a slash separated path relative to a source root to the
// segments of its module name.
func ModuleName(rel, ext string) []string {
	rel = strings.TrimSuffix(rel, ext)
	var segs []string
	for _, s := range strings.Split(rel, "/") {
		if s == "" || s == DefaultStem {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}

// Options tune Ingest.
type Options struct {
	Ext     string // file extension to keep, DefaultExt if empty
	Workers int    // parallel readers, GOMAXPROCS if <= 0
}

// Stats summarizes an ingestion pass.
type Stats struct {
	Files   int // files registered as modules
	Skipped int // files that could not be read
	Imports int // import edges
}

type file struct {
	src  Source
	rel  string
	name string
}

type parsed struct {
	ok  bool
	hdr header.Header
}

// Ingest lists every source, reads and parses headers on a bounded worker
// pool, then registers the modules one by one in source then path order so
// that IDs do not depend on scheduling. A module name produced twice (for
// instance a/b.lean and a/b/default.lean) aborts with
// graph.ErrDuplicateRegistration.
func Ingest(ctx context.Context, g *graph.Graph, sources []Source, opts Options) (Stats, error) {
	var stats Stats
	ext := opts.Ext
	if ext == "" {
		ext = DefaultExt
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var files []file
	for _, src := range sources {
		paths, err := src.List(ctx)
		if err != nil {
			return stats, fmt.Errorf("listing %s: %w", src.Root(), err)
		}
		sort.Strings(paths)
		n := 0
		for _, p := range paths {
			if path.Ext(p) != ext {
				continue
			}
			files = append(files, file{src: src, rel: p, name: strings.Join(ModuleName(p, ext), ".")})
			n++
		}
		log.Infof("Found %d %s files in %s", n, ext, src.Root())
	}

	results := make([]parsed, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range files {
		eg.Go(func() error {
			f := files[i]
			data, err := f.src.ReadFile(egCtx, f.rel)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warnf("Skipping %s/%s: %v", f.src.Root(), f.rel, err)
				return nil
			}
			results[i] = parsed{ok: true, hdr: header.Parse(data)}
			log.LogVf("Parsed %s: prelude=%v imports=%d", f.rel, results[i].hdr.Prelude, len(results[i].hdr.Imports))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	for i, f := range files {
		r := results[i]
		if !r.ok {
			stats.Skipped++
			continue
		}
		imports := r.hdr.ImportNames()
		if _, err := g.AddModule(f.name, r.hdr.Prelude, imports); err != nil {
			return stats, fmt.Errorf("%s/%s: %w", f.src.Root(), f.rel, err)
		}
		stats.Files++
		stats.Imports += len(imports)
	}
	log.S(log.Info, "Ingestion done",
		log.Any("modules", stats.Files),
		log.Any("names", g.Names.Len()),
		log.Any("imports", stats.Imports),
		log.Any("skipped", stats.Skipped))
	return stats, nil
}
