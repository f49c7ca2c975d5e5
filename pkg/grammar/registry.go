package grammar

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tmscope/internal/logging"
)

// DefaultScope is used for files no registered grammar claims.
const DefaultScope = "text.plain"

// ErrUnknownScope is returned when no grammar is registered for a scope.
var ErrUnknownScope = errors.New("unknown grammar scope")

// Entry describes a registered grammar.
type Entry struct {
	ScopeName string
	Name      string
	FileTypes []string
}

// Registry indexes grammar definitions by scope name and file extension.
// It is safe for concurrent use; the instances it hands out are not.
type Registry struct {
	mu           sync.RWMutex
	byScope      map[string]*Definition
	byExt        map[string]string // extension -> scope
	order        []string
	defaultScope string
	opts         LoadOptions
}

// NewRegistry creates a registry containing only the plain text grammar.
func NewRegistry(opts LoadOptions) *Registry {
	r := &Registry{opts: opts}
	r.Reset()
	return r
}

// Reset drops every registered grammar except plain text.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byScope = make(map[string]*Definition)
	r.byExt = make(map[string]string)
	r.order = nil
	r.defaultScope = DefaultScope
	r.registerLocked(plainText())
}

func plainText() *Definition {
	def, _ := Load(map[string]any{
		keyScopeName: DefaultScope,
		keyName:      "Plain Text",
		keyFileTypes: []any{"txt"},
		keyPatterns:  []any{},
	}, LoadOptions{Logger: logging.Discard()})
	return def
}

// Register adds def. The first grammar registered for a scope or an
// extension wins; it reports whether def was added.
func (r *Registry) Register(def *Definition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(def)
}

func (r *Registry) registerLocked(def *Definition) bool {
	if def == nil || def.ScopeName == "" {
		return false
	}
	if _, ok := r.byScope[def.ScopeName]; ok {
		return false
	}
	r.byScope[def.ScopeName] = def
	r.order = append(r.order, def.ScopeName)
	for _, ext := range def.FileTypes {
		ext = normalizeExt(ext)
		if _, taken := r.byExt[ext]; ext != "" && !taken {
			r.byExt[ext] = def.ScopeName
		}
	}
	return true
}

// SetExtension maps ext to scope, replacing any existing mapping.
func (r *Registry) SetExtension(ext, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ext = normalizeExt(ext); ext != "" {
		r.byExt[ext] = scope
	}
}

// SetDefaultScope changes the scope used for unknown extensions.
func (r *Registry) SetDefaultScope(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultScope = scope
}

// LoadFile loads the grammar at path and registers it.
func (r *Registry) LoadFile(path string) (*Definition, error) {
	def, err := LoadFile(path, r.opts)
	if err != nil {
		return nil, err
	}
	if !r.Register(def) {
		r.logger().Debug("grammar already registered", logging.FieldScope, def.ScopeName, logging.FieldPath, path)
	}
	return def, nil
}

// LoadDir registers every grammar file under dir. Files in unsupported
// formats are skipped; the first load failure is returned after the whole
// directory has been tried.
func (r *Registry) LoadDir(dir string) (int, error) {
	var (
		loaded   int
		firstErr error
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ferr := FormatFromPath(path); ferr != nil {
			return nil //nolint:nilerr // not a grammar file
		}
		if _, lerr := r.LoadFile(path); lerr != nil {
			r.logger().Warn("skipping grammar", logging.FieldPath, path, logging.FieldError, lerr)
			if firstErr == nil {
				firstErr = lerr
			}
			return nil
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("load grammars from %s: %w", dir, err)
	}
	return loaded, firstErr
}

// Definition returns the definition registered for scope.
func (r *Registry) Definition(scope string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byScope[scope]
	return def, ok
}

// ForScope returns a new instance of the grammar registered for scope.
func (r *Registry) ForScope(scope string) (*Grammar, error) {
	def, ok := r.Definition(scope)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}
	return r.instantiate(def), nil
}

// ScopeForExtension returns the scope registered for ext ("cpp" or
// ".cpp"), falling back to the default scope.
func (r *Registry) ScopeForExtension(ext string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if scope, ok := r.byExt[normalizeExt(ext)]; ok {
		return scope
	}
	return r.defaultScope
}

// ForExtension returns a new instance of the grammar for ext, or of the
// default grammar when the extension is unknown.
func (r *Registry) ForExtension(ext string) (*Grammar, error) {
	return r.ForScope(r.ScopeForExtension(ext))
}

// ScopeForPath returns the scope for a file name. The full base name is
// tried first so that grammars can claim names like "Makefile".
func (r *Registry) ScopeForPath(path string) string {
	base := filepath.Base(path)
	r.mu.RLock()
	scope, ok := r.byExt[normalizeExt(base)]
	r.mu.RUnlock()
	if ok {
		return scope
	}
	return r.ScopeForExtension(filepath.Ext(base))
}

// ForPath returns a new instance of the grammar for a file name.
func (r *Registry) ForPath(path string) (*Grammar, error) {
	return r.ForScope(r.ScopeForPath(path))
}

// HasExtension reports whether a grammar claims ext explicitly.
func (r *Registry) HasExtension(ext string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byExt[normalizeExt(ext)]
	return ok
}

// ForFirstLine returns a new instance of the first registered grammar whose
// firstLineMatch accepts line.
func (r *Registry) ForFirstLine(line string) (*Grammar, bool) {
	r.mu.RLock()
	var match *Definition
	for _, scope := range r.order {
		if def := r.byScope[scope]; def.MatchesFirstLine(line) {
			match = def
			break
		}
	}
	r.mu.RUnlock()
	if match == nil {
		return nil, false
	}
	return r.instantiate(match), true
}

// Scopes lists the registered grammars sorted by scope name.
func (r *Registry) Scopes() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.byScope))
	for _, def := range r.byScope {
		entries = append(entries, Entry{
			ScopeName: def.ScopeName,
			Name:      def.Name,
			FileTypes: slices.Clone(def.FileTypes),
		})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ScopeName, b.ScopeName) })
	return entries
}

// Len returns the number of registered grammars.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byScope)
}

func (r *Registry) instantiate(def *Definition) *Grammar {
	return def.Instantiate(WithProvider(r), WithLogger(r.logger()))
}

func (r *Registry) logger() *log.Logger {
	return r.opts.logger()
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
