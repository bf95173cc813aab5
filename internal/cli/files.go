package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/kotae/internal/indexer"
)

// Collector expands ingest arguments into files. Arguments may be files,
// directories (walked recursively) or doublestar globs such as docs/**/*.pdf.
type Collector struct {
	excludes   []string
	extensions []string
}

// NewCollector returns a Collector. Files found by walking a directory or
// expanding a glob must carry one of extensions; an empty list accepts all.
// Exclude patterns are matched against the path relative to the argument
// and against the base name.
func NewCollector(excludes, extensions []string) *Collector {
	return &Collector{excludes: excludes, extensions: extensions}
}

// Collect returns the absolute paths of matching files, sorted and unique.
// Files named explicitly are returned even when their extension is not listed.
func (c *Collector) Collect(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, arg := range args {
		if isGlob(arg) {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(arg))
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			for _, m := range matches {
				if c.wanted(filepath.FromSlash(base), m) {
					add(m)
				}
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !c.excluded(filepath.Dir(arg), arg) {
				add(arg)
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && (strings.HasPrefix(d.Name(), ".") || c.excluded(arg, path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			if c.wanted(arg, path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Collector) wanted(root, path string) bool {
	if len(c.extensions) > 0 && !indexer.ExtensionAllowed(filepath.Ext(path), c.extensions) {
		return false
	}
	return !c.excluded(root, path)
}

func (c *Collector) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, pattern := range c.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
