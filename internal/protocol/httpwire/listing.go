package httpwire

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
)

// ListingEntry is one line of a directory listing.
type ListingEntry struct {
	// Name is the entry's file name. Directories are shown with a trailing "/".
	Name string

	// Href is the link target, built from the request path.
	Href string

	// Dir marks directory entries.
	Dir bool

	// Count is the entry's visit count at render time.
	Count uint64
}

// Listing is the data behind a directory listing page.
type Listing struct {
	// Path is the request path, shown in the page title.
	Path string

	// Parent is the "../" entry. Nil for the root directory.
	Parent *ListingEntry

	Entries []ListingEntry
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Directory listing for {{.Path}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        ul { list-style-type: none; padding: 0; }
        li { margin: 5px 0; }
        a { text-decoration: none; color: #0366d6; }
        a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1>Directory listing for {{.Path}}</h1>
    <ul>
{{- with .Parent}}
        <li><a href="{{.Href}}">../</a> (Requests: {{.Count}})</li>
{{- end}}
{{- range .Entries}}
        <li><a href="{{.Href}}">{{.Name}}{{if .Dir}}/{{end}}</a> (Requests: {{.Count}})</li>
{{- end}}
    </ul>
</body>
</html>
`))

// ListingResponse renders l as a 200 HTML page. Entries are rendered in name
// order whatever order they arrive in.
func ListingResponse(l Listing) (*Response, error) {
	entries := make([]ListingEntry, len(l.Entries))
	copy(entries, l.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	l.Entries = entries

	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("render listing for %s: %w", l.Path, err)
	}

	return NewResponse(StatusOK, HTMLContentType, buf.Bytes()), nil
}
