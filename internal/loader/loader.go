// Package loader reads module images into an arena: the inputs of a merge
// first, then every assembly they reference that can be found on the
// search path.
package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"weld/internal/diag"
	"weld/internal/image"
	"weld/internal/metadata"
	"weld/internal/progress"
	"weld/internal/trace"
)

// Options control where references are looked up and how many images are
// decoded at once.
type Options struct {
	Search   []string
	Jobs     int // <= 0 means GOMAXPROCS
	Progress progress.Sink
}

// Result lists what was loaded.
type Result struct {
	Inputs     []metadata.ModuleID // in the order the paths were given
	References []metadata.ModuleID // found on the search path
	Unresolved []string            // referenced assembly names nobody provides
	Unbound    int                 // cross-assembly links left unbound
}

// Load decodes paths in parallel, registers them in path order and then
// follows references wave by wave. Registration is sequential so handles
// are deterministic regardless of Jobs.
func Load(ctx context.Context, a *metadata.Arena, paths []string, opts Options, r diag.Reporter) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "load", trace.ParentFrom(ctx))
	defer span.End("")

	l := &loader{arena: a, opts: opts, reporter: r, tracer: tracer, span: span.ID()}
	res := &Result{}

	images, err := l.decodeAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	var links []image.Link
	for _, img := range images {
		mid, pending := img.Register(a)
		links = append(links, pending...)
		res.Inputs = append(res.Inputs, mid)
		trace.Point(tracer, trace.ScopeAssembly, "register", img.Path, l.span)
	}

	tried := make(map[string]bool)
	for wave := l.pending(tried); len(wave) > 0; wave = l.pending(tried) {
		var found []string
		for _, name := range wave {
			tried[metadata.FoldName(name)] = true
			if path, ok := l.locate(name); ok {
				found = append(found, path)
				continue
			}
			res.Unresolved = append(res.Unresolved, name)
		}
		if len(found) == 0 {
			break
		}
		images, err := l.decodeAll(ctx, found)
		if err != nil {
			return nil, err
		}
		for _, img := range images {
			mid, pending := img.Register(a)
			links = append(links, pending...)
			res.References = append(res.References, mid)
		}
	}
	l.bindReferences()
	for _, name := range res.Unresolved {
		diag.ReportWarning(r, diag.AnmUnresolvedReference, name,
			"assembly not found on the search path").Emit()
	}
	res.Unbound = image.Resolve(a, links, r)
	span.WithExtra("modules", strconv.Itoa(len(res.Inputs)+len(res.References)))
	return res, nil
}

type loader struct {
	arena    *metadata.Arena
	opts     Options
	reporter diag.Reporter
	tracer   trace.Tracer
	span     uint64
}

func (l *loader) decodeAll(ctx context.Context, paths []string) ([]*image.Image, error) {
	jobs := l.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	// индексы уникальны для каждой горутины, мьютекс не нужен
	images := make([]*image.Image, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			span := trace.Begin(l.tracer, trace.ScopeAssembly, "decode", l.span)
			defer span.End(path)
			report := progress.Track(l.opts.Progress, AssemblyName(path), progress.StageLoad)
			img, err := image.ReadFile(path)
			report(err)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, diag.Fatalf(diag.MrgCancelled, "", "loading cancelled: %v", err)
		}
		return nil, err
	}
	return images, nil
}

// AssemblyName guesses the assembly name from an image path.
func AssemblyName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), image.Ext)
}

// pending returns referenced assembly names that are neither loaded nor
// already tried, deduplicated case-insensitively in reference order.
func (l *loader) pending(tried map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, mid := range l.arena.Modules() {
		for _, ref := range l.arena.Module(mid).References {
			key := metadata.FoldName(ref.Identity.Name)
			if seen[key] || tried[key] || l.arena.FindModule(ref.Identity.Name).IsValid() {
				continue
			}
			seen[key] = true
			out = append(out, ref.Identity.Name)
		}
	}
	return out
}

// locate finds "<name>.wmod" in the search directories, first hit wins.
func (l *loader) locate(name string) (string, bool) {
	for _, dir := range l.opts.Search {
		path := filepath.Join(dir, name+image.Ext)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (l *loader) bindReferences() {
	for _, mid := range l.arena.Modules() {
		mod := l.arena.Module(mid)
		for i := range mod.References {
			ref := &mod.References[i]
			if !ref.Module.IsValid() {
				ref.Module = l.arena.FindModule(ref.Identity.Name)
			}
		}
	}
}
