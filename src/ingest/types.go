package ingest

import (
	"path/filepath"
	"strings"
)

// Payload is an image captured from a drop or paste event
type Payload struct {
	Bytes []byte

	// SourcePath is the dropped file's path. Empty for pasted bitmaps.
	SourcePath string

	// Extension including the leading dot, e.g. ".jpg". Inferred when empty.
	Extension string
}

// ResolvedExtension returns the payload's extension, falling back to the
// source path's extension and finally to sniffing the bytes
func (p Payload) ResolvedExtension() string {
	if p.Extension != "" {
		if !strings.HasPrefix(p.Extension, ".") {
			return "." + p.Extension
		}
		return p.Extension
	}
	if ext := filepath.Ext(p.SourcePath); ext != "" {
		return ext
	}
	return DetectExtension(p.Bytes)
}

// Dimensions holds probed pixel sizes
type Dimensions struct {
	Width  int
	Height int
}

// DimensionProber decodes enough of an image to report its size
type DimensionProber func(data []byte) (Dimensions, error)

// Location is where an asset lands on disk
type Location struct {
	Directory string
	Filename  string
}

// Path returns the full filesystem path of the asset
func (l Location) Path() string {
	return filepath.Join(l.Directory, l.Filename)
}

// Result is the outcome of one successful ingestion
type Result struct {
	Location   Location
	PublicPath string
	Markup     string

	// Dimensions is nil when the probe failed or no prober is configured
	Dimensions *Dimensions
}
