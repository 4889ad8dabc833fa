package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fortio.org/cli"
	"fortio.org/log"

	"github.com/ldemailly/leandeps/config"
	"github.com/ldemailly/leandeps/export"
	"github.com/ldemailly/leandeps/graph"
	"github.com/ldemailly/leandeps/remote"
	"github.com/ldemailly/leandeps/scan"
)

type options struct {
	configPath   string
	output       string
	closure      bool
	leftToRight  bool
	levels       bool
	checkPrelude bool
	ext          string
	workers      int
	cacheDir     string
	clearCache   bool
	noCache      bool
}

func main() {
	configFlag := flag.String("config", "", "YAML category table (default $"+config.EnvConfig+" or the built-in table)")
	outputFlag := flag.String("o", "", "write the graph to this file instead of stdout; diagnostics then go to stdout")
	closureFlag := flag.Bool("closure", false, "draw every transitive dependency instead of the reduced edges")
	lrFlag := flag.Bool("lr", false, "lay the graph out left to right")
	levelsFlag := flag.Bool("levels", false, "print topological levels (leaves first) instead of DOT")
	preludeFlag := flag.Bool("check-prelude", false, "report non-prelude modules importing a prelude module")
	extFlag := flag.String("ext", "", "source file extension (default "+scan.DefaultExt+")")
	workersFlag := flag.Int("workers", 0, "parallel header readers (default GOMAXPROCS)")
	cacheFlag := flag.String("cache", "", "cache directory for gh: sources (default $"+config.EnvCacheDir+" or the user cache dir)")
	clearCacheFlag := flag.Bool("clear-cache", false, "clear the gh: source cache before running")
	noCacheFlag := flag.Bool("no-cache", false, "do not read or write the gh: source cache")
	cli.ArgsHelp = "dir|gh:owner/repo[@ref][/dir] ..."
	cli.MinArgs = 1
	cli.MaxArgs = -1
	cli.Main()

	opts := options{
		configPath:   *configFlag,
		output:       *outputFlag,
		closure:      *closureFlag,
		leftToRight:  *lrFlag,
		levels:       *levelsFlag,
		checkPrelude: *preludeFlag,
		ext:          *extFlag,
		workers:      *workersFlag,
		cacheDir:     *cacheFlag,
		clearCache:   *clearCacheFlag,
		noCache:      *noCacheFlag,
	}
	if err := run(context.Background(), opts, flag.Args(), os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%v", err)
	}
}

// sources builds one corpus source per argument. Remote sources share a
// single client and cache.
func sources(ctx context.Context, cfg *config.Config, opts options, args []string) ([]scan.Source, error) {
	var client *remote.Client
	var out []scan.Source
	for _, arg := range args {
		if !remote.IsLocation(arg) {
			local, err := scan.NewLocal(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, local)
			continue
		}
		loc, err := remote.ParseLocation(arg)
		if err != nil {
			return nil, err
		}
		if client == nil {
			cache, err := remote.NewCache(cfg.CacheDir, !opts.noCache)
			if err != nil {
				return nil, err
			}
			if opts.clearCache {
				if err := cache.Clear(); err != nil {
					return nil, err
				}
			}
			client = remote.NewClient(ctx, cfg.Token, cache)
		}
		out = append(out, client.Source(loc))
	}
	return out, nil
}

// run ingests the corpora named by args, runs the checks and writes the
// graph. Diagnostics go to stdout when the graph goes to a file and to
// stderr otherwise.
func run(ctx context.Context, opts options, args []string, stdout, stderr io.Writer) error {
	if opts.clearCache && opts.noCache {
		return errors.New("-clear-cache and -no-cache are mutually exclusive")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.ext != "" {
		cfg.Ext = opts.ext
	}
	if opts.cacheDir != "" {
		cfg.CacheDir = opts.cacheDir
	}

	srcs, err := sources(ctx, cfg, opts, args)
	if err != nil {
		return err
	}
	g := graph.New()
	if _, err := scan.Ingest(ctx, g, srcs, scan.Options{Ext: cfg.Ext, Workers: opts.workers}); err != nil {
		return err
	}

	diag := stderr
	if opts.output != "" {
		diag = stdout
	}

	fmt.Fprintln(diag, "check if all modules are found")
	dangling := g.DanglingImports()
	for _, d := range dangling {
		fmt.Fprintln(diag, d)
	}
	if len(dangling) > 0 {
		log.Warnf("%d imports of missing modules", len(dangling))
	}

	if opts.checkPrelude {
		fmt.Fprintln(diag, "which non-prelude module imports a prelude module")
		for _, e := range g.PreludeImports() {
			fmt.Fprintf(diag, "module %s imports %s\n", g.Name(e.From), g.Name(e.To))
		}
	}

	fmt.Fprintln(diag, `check if a module uses local "." import syntax`)
	if err := g.LocalImports(); err != nil {
		var lerr *graph.LocalImportError
		if errors.As(err, &lerr) {
			for _, l := range lerr.Imports {
				fmt.Fprintln(diag, l)
			}
		}
		return err
	}

	fmt.Fprintln(diag, "print graph")
	a := graph.NewAnalyzer(g)
	var edges graph.Adjacency
	if opts.closure {
		edges, err = a.ClosureEdges()
	} else {
		edges, err = a.Reduce()
	}
	if err != nil {
		return err
	}
	log.Infof("Computed %d closures", a.Computed())

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	view := export.View{Graph: g, Edges: edges, Categories: cfg.Categories}
	if opts.levels {
		err = export.WriteLevels(out, view)
	} else {
		err = export.DOT(out, view, export.Options{LeftToRight: opts.leftToRight})
	}
	if err != nil {
		return err
	}
	if opts.output != "" {
		log.Infof("Graph written to %s", opts.output)
	}
	return nil
}
