package driver

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tpcheck/internal/binder"
	"tpcheck/internal/declfile"
	"tpcheck/internal/diag"
	"tpcheck/internal/observ"
	"tpcheck/internal/source"
	"tpcheck/internal/tparams"
	"tpcheck/internal/trace"
	"tpcheck/internal/version"
)

// Options configure a resolve run.
type Options struct {
	// Jobs bounds parallelism; zero means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps diagnostics per file.
	MaxDiagnostics int
	// Exclusion is the default exclusion set; zero means tparams.DefaultExclusion.
	Exclusion tparams.ExclusionSet
	// Cache is optional.
	Cache *DiskCache
	// Timer is optional and receives the load, bind and resolve phases.
	Timer *observ.Timer
}

// Result holds the reports of a run in input order.
type Result struct {
	FileSet *source.FileSet
	Files   []FileReport
}

// HasErrors reports whether any file produced an error diagnostic.
func (r *Result) HasErrors() bool {
	for i := range r.Files {
		if r.Files[i].HasErrors() {
			return true
		}
	}
	return false
}

type fileState struct {
	path   string
	id     source.FileID
	key    CacheKey
	bag    *diag.Bag
	doc    *declfile.Document
	bound  *binder.Result
	report *FileReport
}

func (st *fileState) reporter() diag.Reporter {
	return diag.FileReporter{Next: diag.BagReporter{Bag: st.bag}, File: st.id}
}

// Resolve runs the pipeline over paths. Only cancellation returns an error;
// per-file problems are reported as diagnostics.
func Resolve(ctx context.Context, paths []string, opts Options) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "resolve")
	defer span.End("")

	if opts.Exclusion == 0 {
		opts.Exclusion = tparams.DefaultExclusion
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	fileSet := source.NewFileSet()
	states := make([]*fileState, len(paths))
	for i, path := range paths {
		states[i] = &fileState{path: path, bag: diag.NewBag(opts.MaxDiagnostics)}
	}

	err := opts.Timer.Track("load", func() (string, error) {
		var hits atomic.Int32
		err := forEach(ctx, states, jobs, func(ctx context.Context, st *fileState) error {
			loadFile(fileSet, st, opts)
			if st.report != nil && st.report.Cached {
				hits.Add(1)
			}
			return nil
		})
		return fmt.Sprintf("%d files, %d cached", len(states), hits.Load()), err
	})
	if err != nil {
		return nil, err
	}

	err = opts.Timer.Track("bind", func() (string, error) {
		return "", forEach(ctx, states, jobs, func(ctx context.Context, st *fileState) error {
			if st.report != nil || st.id == source.NoFileID {
				return nil
			}
			bindFile(ctx, fileSet, st, opts.Exclusion)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	err = opts.Timer.Track("resolve", func() (string, error) {
		return "", forEach(ctx, states, jobs, func(ctx context.Context, st *fileState) error {
			if st.report != nil {
				return nil
			}
			return resolveFile(ctx, st, jobs, opts.Cache)
		})
	})
	if err != nil {
		return nil, err
	}

	res := &Result{FileSet: fileSet, Files: make([]FileReport, len(states))}
	for i, st := range states {
		res.Files[i] = *st.report
	}
	return res, nil
}

// forEach runs fn for every state with at most jobs goroutines.
func forEach(ctx context.Context, states []*fileState, jobs int, fn func(context.Context, *fileState) error) error {
	if len(states) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(states)))
	for _, st := range states {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, st)
		})
	}
	return g.Wait()
}

func loadFile(fileSet *source.FileSet, st *fileState, opts Options) {
	id, err := fileSet.Load(st.path)
	if err != nil {
		diag.ReportError(st.reporter(), diag.IOLoadFileError, st.path, "failed to load file: "+err.Error()).Emit()
		st.report = newReport(st, nil)
		return
	}
	st.id = id
	file := fileSet.Get(id)
	st.key = MakeCacheKey(file.Content, version.Version, opts.Exclusion)
	if opts.Cache == nil {
		return
	}
	cached, ok, err := opts.Cache.Get(st.key)
	if err != nil {
		diag.ReportWarning(st.reporter(), diag.IOCacheError, st.path, "ignoring unreadable cache entry: "+err.Error()).Emit()
		return
	}
	if ok {
		cached.Path = st.path
		for i := range cached.Diagnostics {
			cached.Diagnostics[i].File = id
		}
		st.report = cached
	}
}

func bindFile(ctx context.Context, fileSet *source.FileSet, st *fileState, exclusion tparams.ExclusionSet) {
	file := fileSet.Get(st.id)
	_, span := trace.Start(ctx, trace.ScopePass, "bind "+file.Path)
	defer span.End("")

	rep := st.reporter()
	format, err := declfile.FormatFromPath(file.Path)
	if err != nil {
		diag.ReportError(rep, diag.DeclUnknownFormat, file.Path, err.Error()).Emit()
		return
	}
	doc, err := declfile.Decode(file.Content, format)
	if err != nil {
		var ve *declfile.ValidationError
		if !errors.As(err, &ve) {
			diag.ReportError(rep, diag.DeclDecodeFailed, file.Path, err.Error()).Emit()
			return
		}
		for _, issue := range ve.Issues {
			diag.ReportError(rep, diag.DeclValidation, issue.Field, issue.Msg).Emit()
		}
		return
	}
	st.doc = doc
	st.bound = binder.Bind(doc, binder.Options{
		Exclusion: exclusion,
		Tracer:    trace.FromContext(ctx),
	}, rep)
}

// resolveFile brings every group of a bound file to the late stage, then
// collects facts and diagnostics in declaration order.
func resolveFile(ctx context.Context, st *fileState, jobs int, cache *DiskCache) error {
	if st.bound == nil {
		st.report = newReport(st, nil)
		return nil
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "resolve "+st.path)
	defer span.End("")

	arena := st.bound.Arena
	decls := arena.Decls()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, d := range decls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, ds := trace.Start(gctx, trace.ScopeDecl, d.QualifiedName())
			d.Group().EnsureAllConstraintsAreResolved(false)
			ds.End(d.Group().Stage().String())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rep := diag.NewDedupReporter(st.reporter())
	var params []ParamFacts
	for _, d := range decls {
		for _, dg := range d.Group().Diagnostics() {
			rep.Report(dg)
		}
		for _, pid := range d.Params() {
			sym := arena.Symbol(pid)
			params = append(params, collectFacts(sym, arena.Types()))
			sym.CollectUseSiteDiagnostics(rep)
		}
	}
	st.report = newReport(st, params)
	if cache != nil && !st.report.Cached {
		if err := cache.Put(st.key, st.report); err != nil {
			diag.ReportWarning(st.reporter(), diag.IOCacheError, st.path, "failed to write cache entry: "+err.Error()).Emit()
			st.report.Diagnostics = sortedItems(st.bag)
		}
	}
	return nil
}

func newReport(st *fileState, params []ParamFacts) *FileReport {
	r := &FileReport{
		Path:        st.path,
		Params:      params,
		Diagnostics: sortedItems(st.bag),
	}
	if st.id != source.NoFileID {
		r.Hash = hex.EncodeToString(st.key[:])
	}
	if st.bound != nil {
		r.Exclusion = st.bound.Exclusion.Names()
	}
	return r
}

func sortedItems(bag *diag.Bag) []diag.Diagnostic {
	bag.Sort()
	out := make([]diag.Diagnostic, bag.Len())
	copy(out, bag.Items())
	return out
}
