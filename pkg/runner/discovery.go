package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yaklabco/tmscope/pkg/grammar"
)

// Discover returns the absolute paths of the files a run would parse,
// sorted and without duplicates. Explicitly named files are kept even when
// no grammar claims them; directory walks keep only claimed files.
func Discover(ctx context.Context, reg *grammar.Registry, opts Options) ([]string, error) {
	workDir, err := resolveWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	d := &discoverer{
		workDir: workDir,
		opts:    opts,
		claims:  opts.claims(reg),
		seen:    make(map[string]struct{}),
	}

	for _, input := range opts.effectivePaths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery cancelled: %w", err)
		}

		abs := input
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(workDir, abs)
		}
		abs = filepath.Clean(abs)

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			if !d.excluded(abs) {
				d.add(abs)
			}
			continue
		}
		if err := d.walk(ctx, abs); err != nil {
			return nil, err
		}
	}

	sort.Strings(d.files)
	return d.files, nil
}

type discoverer struct {
	workDir string
	opts    Options
	claims  func(path string) bool
	seen    map[string]struct{}
	files   []string
}

func (d *discoverer) add(path string) {
	if _, ok := d.seen[path]; ok {
		return
	}
	d.seen[path] = struct{}{}
	d.files = append(d.files, path)
}

func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}

func (d *discoverer) walk(ctx context.Context, root string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}

		hidden := strings.HasPrefix(entry.Name(), ".")
		if entry.IsDir() {
			if path != root && (hidden || d.excluded(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil //nolint:nilerr // broken symlink
			}
			info, err := os.Stat(target)
			if err != nil {
				return nil //nolint:nilerr // inaccessible target
			}
			if info.IsDir() {
				if !d.opts.FollowSymlinks {
					return nil
				}
				// Walk the target; WalkDir does not follow the link itself.
				return d.walk(ctx, target)
			}
		}

		if d.claims(path) && d.included(path) && !d.excluded(path) {
			d.add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory %s: %w", root, err)
	}
	return nil
}

func (d *discoverer) rel(path string) string {
	rel, err := filepath.Rel(d.workDir, path)
	if err != nil {
		return path
	}
	return rel
}

func (d *discoverer) excluded(path string) bool {
	return matchesAny(d.rel(path), d.opts.ExcludeGlobs)
}

func (d *discoverer) included(path string) bool {
	return len(d.opts.IncludeGlobs) == 0 || matchesAny(d.rel(path), d.opts.IncludeGlobs)
}

func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchGlob(relPath, pattern) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated path against a glob. Besides the
// filepath.Match syntax it understands "dir/**", "**/name" and a pattern
// matching only the base name.
func matchGlob(path, pattern string) bool {
	path = filepath.ToSlash(path)
	pattern = filepath.ToSlash(pattern)

	if prefix, suffix, ok := strings.Cut(pattern, "**"); ok {
		prefix = strings.TrimSuffix(prefix, "/")
		suffix = strings.TrimPrefix(suffix, "/")
		if prefix != "" && path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return false
		}
		if suffix == "" {
			return true
		}
		for _, part := range strings.Split(path, "/") {
			if ok, _ := filepath.Match(suffix, part); ok {
				return true
			}
		}
		return strings.HasSuffix(path, suffix)
	}

	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true
	}
	ok, err := filepath.Match(pattern, filepath.Base(path))
	return err == nil && ok
}

func extOf(path string) string {
	return filepath.Ext(path)
}

func baseOf(path string) string {
	return filepath.Base(path)
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
