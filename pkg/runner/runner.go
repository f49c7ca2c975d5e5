package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/document"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/langdetect"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// Runner parses files with the grammars of a registry.
type Runner struct {
	Registry *grammar.Registry
}

// New creates a Runner over reg.
func New(reg *grammar.Registry) *Runner {
	return &Runner{Registry: reg}
}

// Run discovers files under opts.Paths and parses them with a pool of
// workers. Grammar instances are never shared between workers. Outcomes
// come back in path order. Parsers without a logger of their own log to the
// one carried by ctx.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)
	if opts.Parse.Logger == nil {
		opts.Parse.Logger = logger
	}

	files, err := Discover(ctx, r.Registry, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered files", logging.FieldFilesDiscovered, len(files))

	result := &Result{
		Files: make([]FileOutcome, 0, len(files)),
		Stats: newStats(),
	}
	result.Stats.FilesDiscovered = len(files)
	if len(files) == 0 {
		return result, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	jobs = min(jobs, len(files))
	logger.Debug("starting workers", logging.FieldJobs, jobs)

	workCh := make(chan string)
	outCh := make(chan sized)

	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := &worker{registry: r.Registry, opts: opts, grammars: map[string]*grammar.Grammar{}}
			w.run(ctx, workCh, outCh)
		}()
	}

	go func() {
		defer close(workCh)
		for _, path := range files {
			select {
			case <-ctx.Done():
				return
			case workCh <- path:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	outcomes := make(map[string]sized, len(files))
	for out := range outCh {
		outcomes[out.Path] = out
	}
	for _, path := range files {
		if out, ok := outcomes[path]; ok {
			result.accumulate(out.FileOutcome, out.size)
		}
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	logger.Debug("workers finished",
		logging.FieldFilesProcessed, result.Stats.FilesProcessed,
		logging.FieldFilesFailed, result.Stats.FilesErrored,
		logging.FieldDuration, time.Since(start))
	return result, nil
}

// sized carries the byte size of a file next to its outcome.
type sized struct {
	FileOutcome
	size int64
}

// worker owns one grammar instance per scope it has seen.
type worker struct {
	registry *grammar.Registry
	opts     Options
	grammars map[string]*grammar.Grammar
}

func (w *worker) run(ctx context.Context, workCh <-chan string, outCh chan<- sized) {
	for path := range workCh {
		if ctx.Err() != nil {
			return
		}

		out := w.process(path)
		if w.opts.Metrics != nil {
			w.opts.Metrics.ObserveFile(out.Error == nil)
		}

		select {
		case <-ctx.Done():
			return
		case outCh <- out:
		}
	}
}

func (w *worker) process(path string) sized {
	out := sized{FileOutcome: FileOutcome{Path: path}}

	content, err := os.ReadFile(path)
	if err != nil {
		out.Error = fmt.Errorf("read %s: %w", path, err)
		return out
	}
	out.size = int64(len(content))

	g, err := w.grammarFor(path, content)
	if err != nil {
		out.Error = err
		return out
	}
	out.Scope = g.ScopeName()

	start := time.Now()
	opts := document.Options{Parse: w.opts.Parse, Logger: w.opts.Parse.Logger}
	if w.opts.Metrics != nil {
		opts.Observer = w.opts.Metrics
	}
	doc, err := document.Open(string(content), g, opts)
	if err == nil {
		err = doc.Err()
	}
	out.Duration = time.Since(start)
	if err != nil {
		out.Error = fmt.Errorf("parse %s: %w", path, err)
		return out
	}

	root := doc.Root()
	out.Chars = doc.Text().Len()
	_ = syntax.Walk(&root.Node, func(n *syntax.Node, _ int) error {
		out.Nodes++
		if n.Unclosed {
			out.Unclosed++
		}
		return nil
	})
	if w.opts.KeepTrees {
		out.Root = root
	}
	return out
}

// grammarFor picks the scope of a file and returns this worker's instance
// for it.
func (w *worker) grammarFor(path string, content []byte) (*grammar.Grammar, error) {
	scope := w.registry.ScopeForPath(path)
	if w.opts.DetectLanguage && scope == w.registry.ScopeForExtension("") {
		scope = w.detect(content, scope)
	}

	if g, ok := w.grammars[scope]; ok {
		return g, nil
	}
	g, err := w.registry.ForScope(scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w.grammars[scope] = g
	return g, nil
}

func (w *worker) detect(content []byte, fallback string) string {
	line, _, _ := bytes.Cut(content, []byte("\n"))
	if g, ok := w.registry.ForFirstLine(string(bytes.TrimRight(line, "\r"))); ok {
		return g.ScopeName()
	}
	if scope := langdetect.ScopeFor("", content); scope != langdetect.PlainTextScope {
		if _, ok := w.registry.Definition(scope); ok {
			return scope
		}
	}
	return fallback
}
