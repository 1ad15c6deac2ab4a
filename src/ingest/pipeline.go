package ingest

import (
	"bytes"
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pipeline places images into the date-sharded asset tree and returns
// the markup referencing them. A Pipeline is safe for concurrent use.
type Pipeline struct {
	fs    FileSystem
	now   func() time.Time
	probe DimensionProber
	logf  func(format string, args ...any)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithFileSystem replaces the OS filesystem
func WithFileSystem(fsys FileSystem) Option {
	return func(p *Pipeline) { p.fs = fsys }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithProber sets the dimension probe. Without one every image gets
// plain markup.
func WithProber(probe DimensionProber) Option {
	return func(p *Pipeline) { p.probe = probe }
}

// WithLogger replaces log.Printf for probe degradation messages
func WithLogger(logf func(format string, args ...any)) Option {
	return func(p *Pipeline) { p.logf = logf }
}

// NewPipeline creates a pipeline on the OS filesystem and wall clock
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		fs:   OSFileSystem{},
		now:  time.Now,
		logf: log.Printf,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest resolves, writes and references a single image with a default
// pipeline
func Ingest(payload Payload, cfg Config, targetDocumentPath, projectRoot string, probe DimensionProber) (string, error) {
	res, err := NewPipeline(WithProber(probe)).Ingest(payload, cfg, targetDocumentPath, projectRoot)
	if err != nil {
		return "", err
	}
	return res.Markup, nil
}

// Ingest writes payload under projectRoot and returns the markup for it.
// Filesystem failures return an *Error and no markup.
func (p *Pipeline) Ingest(payload Payload, cfg Config, targetDocumentPath, projectRoot string) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := ValidateImageRoot(cfg.ImageRoot); err != nil {
		return nil, err
	}

	// One clock read keeps directory and public path in the same month
	now := p.now()

	ext := payload.ResolvedExtension()
	loc := Location{
		Directory: ComposeDirectory(projectRoot, cfg.ImageRoot, now),
		Filename:  ResolveName(payload, targetDocumentPath, cfg.PreserveOriginalName, cfg.Hash),
	}

	if err := EnsureDirectory(p.fs, loc.Directory); err != nil {
		return nil, &Error{Kind: ErrDirectoryCreationFailed, Path: loc.Directory, Err: err}
	}

	if payload.SourcePath != "" && cfg.OnConflict == ConflictSuffix {
		existing, err := p.fs.ReadFile(loc.Path())
		if err == nil && !bytes.Equal(existing, payload.Bytes) {
			loc.Filename = disambiguate(loc.Filename, ext, cfg.Hash.ShortHash(payload.Bytes))
		}
	}

	if err := WriteAsset(p.fs, loc.Directory, loc.Filename, payload.Bytes); err != nil {
		return nil, &Error{Kind: ErrAssetWriteFailed, Path: loc.Path(), Err: err}
	}

	res := &Result{
		Location:   loc,
		PublicPath: PublicPath(cfg.PublicRoot, now, loc.Filename),
	}

	if p.probe != nil {
		dims, err := p.probe(payload.Bytes)
		if err != nil {
			p.logf("⚠️  %v, using plain markup", &Error{Kind: ErrDimensionProbeFailed, Path: loc.Path(), Err: err})
		} else {
			res.Dimensions = &dims
		}
	}

	res.Markup = cfg.Markup().Generate(res.PublicPath, ext, res.Dimensions, cfg.InsertAsHTML)
	return res, nil
}

// BatchItem is the outcome for one payload of IngestAll
type BatchItem struct {
	Result *Result
	Err    error
}

// IngestAll ingests every payload of a multi-file drop concurrently,
// bounded by cfg.Concurrency. Items are returned in payload order; one
// failure never affects the others.
func (p *Pipeline) IngestAll(ctx context.Context, payloads []Payload, cfg Config, targetDocumentPath, projectRoot string) []BatchItem {
	cfg = cfg.withDefaults()
	items := make([]BatchItem, len(payloads))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			res, err := p.Ingest(payload, cfg, targetDocumentPath, projectRoot)
			items[i] = BatchItem{Result: res, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return items
}
