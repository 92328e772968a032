// Package resolver maps request paths onto a served directory tree.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathRejected is returned when a request path tries to climb out of the root.
var ErrPathRejected = errors.New("path rejected")

// Kind classifies a resolved path.
type Kind int

const (
	Missing Kind = iota
	Directory
	File
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case File:
		return "file"
	default:
		return "missing"
	}
}

// Resource is a request path mapped under the root.
//
// Path is the canonical filesystem path and doubles as the visit counter key.
type Resource struct {
	Path string
	Kind Kind
}

// Resolver resolves request paths against a fixed root.
type Resolver struct {
	root string
}

// New creates a Resolver for root. The root is made absolute and cleaned once;
// symlinks in the root itself are evaluated so counter keys are stable.
func New(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	if evaluated, err := filepath.EvalSymlinks(abs); err == nil {
		abs = evaluated
	}
	return &Resolver{root: abs}, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps rawPath under the root and classifies the result.
//
// Any ".." segment fails with ErrPathRejected before the filesystem is touched.
// This is a lexical check only: a symlink inside the root pointing elsewhere is followed.
func (r *Resolver) Resolve(rawPath string) (Resource, error) {
	segments, err := Segments(rawPath)
	if err != nil {
		return Resource{}, err
	}

	full := filepath.Join(append([]string{r.root}, segments...)...)

	info, err := os.Stat(full)
	switch {
	case err != nil:
		return Resource{Path: full, Kind: Missing}, nil
	case info.IsDir():
		return Resource{Path: full, Kind: Directory}, nil
	default:
		return Resource{Path: full, Kind: File}, nil
	}
}

// Segments splits a request path into its non-empty segments, rejecting "..".
func Segments(rawPath string) ([]string, error) {
	trimmed := strings.TrimLeft(rawPath, "/")

	var segments []string
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" || segment == "." {
			continue
		}
		if segment == ".." {
			return nil, fmt.Errorf("%q: %w", rawPath, ErrPathRejected)
		}
		segments = append(segments, segment)
	}
	return segments, nil
}
