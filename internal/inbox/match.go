package inbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LockPrefix marks the owner files word processors create next to an open
// document.
const LockPrefix = "~$"

// Filter decides which files under a root are documents to process.
type Filter struct {
	// Include are doublestar patterns matched against the slash-separated
	// path relative to the root.
	Include []string

	// ExcludeDirs are directory base names, or paths, that are skipped with
	// everything below them.
	ExcludeDirs []string
}

// Skip reports whether a file name is never a document: word processor lock
// files and hidden files.
func Skip(name string) bool {
	return strings.HasPrefix(name, LockPrefix) || strings.HasPrefix(name, ".")
}

// Match reports whether rel, a path relative to the root, is an included
// document.
func (f Filter) Match(rel string) bool {
	if Skip(filepath.Base(rel)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ExcludedDir reports whether the directory at path is excluded. Hidden
// directories are always excluded.
func (f Filter) ExcludedDir(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	for _, ex := range f.ExcludeDirs {
		if strings.ContainsRune(filepath.ToSlash(ex), '/') {
			if sameDir(path, ex) {
				return true
			}
			continue
		}
		if base == ex {
			return true
		}
	}
	return false
}

func sameDir(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// Expand walks root and returns the included documents in lexical order.
// A root that is a file is returned as is unless it is a lock file.
func (f Filter) Expand(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	if !info.IsDir() {
		if Skip(filepath.Base(root)) {
			return nil, nil
		}
		return []string{root}, nil
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && f.ExcludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if f.Match(rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inbox: walk %q: %w", root, err)
	}
	return out, nil
}
