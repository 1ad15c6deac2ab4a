package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// HashAlgorithm selects the digest used for content-addressed names
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "md5"
	HashSHA256 HashAlgorithm = "sha256"
	HashBLAKE3 HashAlgorithm = "blake3"
)

// ConflictPolicy decides what happens when a preserved original name
// already exists in the shard with different bytes
type ConflictPolicy string

const (
	// ConflictOverwrite replaces the existing file silently
	ConflictOverwrite ConflictPolicy = "overwrite"

	// ConflictSuffix appends the content hash to the stem instead
	ConflictSuffix ConflictPolicy = "suffix"
)

const (
	DefaultImageRoot   = "static/images"
	DefaultShortcode   = "img"
	DefaultConcurrency = 4
)

// DefaultBreakpoints are the responsive widths, widest first
var DefaultBreakpoints = []int{1280, 640, 320}

// DefaultPlainExtensions never get responsive markup
var DefaultPlainExtensions = []string{".png"}

// Config is the fully resolved pipeline configuration. It is read, never
// mutated, by the pipeline.
type Config struct {
	PreserveOriginalName bool
	InsertAsHTML         bool

	// ImageRoot is relative to the project root, e.g. "static/images"
	ImageRoot string

	// PublicRoot is the URL prefix matching ImageRoot, e.g. "/images"
	PublicRoot string

	Hash       HashAlgorithm
	OnConflict ConflictPolicy

	Breakpoints     []int
	PlainExtensions []string
	Shortcode       string

	// Concurrency bounds IngestAll
	Concurrency int
}

// DefaultConfig returns a Config with every field at its default
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.ImageRoot == "" {
		c.ImageRoot = DefaultImageRoot
	}
	if c.PublicRoot == "" {
		c.PublicRoot = DefaultPublicRoot(c.ImageRoot)
	}
	if c.Hash == "" {
		c.Hash = HashMD5
	}
	if c.OnConflict == "" {
		c.OnConflict = ConflictOverwrite
	}
	if len(c.Breakpoints) == 0 {
		c.Breakpoints = DefaultBreakpoints
	}
	if c.PlainExtensions == nil {
		c.PlainExtensions = DefaultPlainExtensions
	}
	if c.Shortcode == "" {
		c.Shortcode = DefaultShortcode
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Markup returns the generator configured by c
func (c Config) Markup() MarkupGenerator {
	c = c.withDefaults()
	return MarkupGenerator{
		Breakpoints:     c.Breakpoints,
		PlainExtensions: c.PlainExtensions,
		Shortcode:       c.Shortcode,
	}
}

// ValidateImageRoot requires imageRoot to stay inside the project root
func ValidateImageRoot(imageRoot string) error {
	if filepath.IsAbs(imageRoot) || strings.HasPrefix(filepath.ToSlash(imageRoot), "/") {
		return fmt.Errorf("%w: %q must be relative to the project root", ErrInvalidImageRoot, imageRoot)
	}
	cleaned := filepath.ToSlash(filepath.Clean(imageRoot))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q escapes the project root", ErrInvalidImageRoot, imageRoot)
	}
	return nil
}

// DefaultPublicRoot derives the public URL prefix from an image root by
// dropping the site's static directory: "static/images" -> "/images".
func DefaultPublicRoot(imageRoot string) string {
	cleaned := strings.Trim(filepath.ToSlash(filepath.Clean(imageRoot)), "/")
	if cleaned == "" || cleaned == "." {
		return "/"
	}
	segments := strings.Split(cleaned, "/")
	if len(segments) > 1 {
		segments = segments[1:]
	}
	return "/" + strings.Join(segments, "/")
}
