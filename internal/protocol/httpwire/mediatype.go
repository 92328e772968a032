package httpwire

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedMediaType is returned for files outside the served type allowlist.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// HTMLContentType is used for generated pages (status pages and listings).
const HTMLContentType = "text/html; charset=utf-8"

// mediaTypes is the full set of servable file types, keyed by lowercase extension.
var mediaTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// MediaType returns the media type served for name, matched on its extension
// case-insensitively. The second result is false for anything not servable.
func MediaType(name string) (string, bool) {
	mt, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	return mt, ok
}
