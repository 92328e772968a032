package http

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittohttp/internal/protocol/httpwire"
	"github.com/marmos91/dittohttp/pkg/resolver"
)

// buildListing collects the entries of dir with their current visit counts.
//
// urlPath is the request path as sent; links are built by joining it with
// each entry name. Counts are read, never incremented.
func (s *HTTPAdapter) buildListing(dir resolver.Resource, urlPath string) (httpwire.Listing, error) {
	dirEntries, err := os.ReadDir(dir.Path)
	if err != nil {
		return httpwire.Listing{}, fmt.Errorf("list %s: %w: %w", dir.Path, ErrIOFailure, err)
	}

	listing := httpwire.Listing{
		Path:    urlPath,
		Entries: make([]httpwire.ListingEntry, 0, len(dirEntries)),
	}

	if dir.Path != s.resolver.Root() {
		parentURL := parentURLPath(urlPath)
		listing.Parent = &httpwire.ListingEntry{
			Name:  "..",
			Href:  parentURL,
			Dir:   true,
			Count: s.counters.CurrentCount(s.parentCountKey(parentURL)),
		}
	}

	for _, entry := range dirEntries {
		full := filepath.Join(dir.Path, entry.Name())
		isDir := entryIsDir(full, entry)

		href := path.Join("/", urlPath, entry.Name())
		if isDir {
			href += "/"
		}

		listing.Entries = append(listing.Entries, httpwire.ListingEntry{
			Name:  entry.Name(),
			Href:  href,
			Dir:   isDir,
			Count: s.counters.CurrentCount(full),
		})
	}

	return listing, nil
}

// parentURLPath returns the URL of the directory above urlPath.
// "/docs/" and "/docs" both give "/".
func parentURLPath(urlPath string) string {
	parent := path.Dir(strings.TrimSuffix(urlPath, "/"))
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

// parentCountKey joins the root and a parent URL as plain strings. It does
// not go through the resolver, so it is only as canonical as the URL.
func (s *HTTPAdapter) parentCountKey(parentURL string) string {
	return filepath.Join(s.resolver.Root(), filepath.FromSlash(strings.TrimPrefix(parentURL, "/")))
}

// entryIsDir reports whether entry is a directory, following symlinks.
func entryIsDir(full string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}
