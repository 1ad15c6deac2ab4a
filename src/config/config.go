package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dragdropimg/src/ingest"
)

// EnvProjectRoot overrides project.root when set
const EnvProjectRoot = "DRAGDROPIMG_PROJECT_ROOT"

// Config represents the application configuration
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Markup  MarkupConfig  `yaml:"markup"`
	Watch   WatchConfig   `yaml:"watch"`
}

type ProjectConfig struct {
	Root string `yaml:"root"`

	// ImageRoot is relative to Root
	ImageRoot string `yaml:"image_root"`

	// PublicRoot defaults to ImageRoot without its first segment
	PublicRoot string `yaml:"public_root"`
}

type IngestConfig struct {
	PreserveOriginalName bool   `yaml:"preserve_original_name"`
	InsertAsHTML         bool   `yaml:"insert_as_html"`
	Hash                 string `yaml:"hash"`
	OnConflict           string `yaml:"on_conflict"`
	Concurrency          int    `yaml:"concurrency"`
}

type MarkupConfig struct {
	Breakpoints     []int    `yaml:"breakpoints"`
	PlainExtensions []string `yaml:"plain_extensions"`
	Shortcode       string   `yaml:"shortcode"`
}

type WatchConfig struct {
	InboxDir          string        `yaml:"inbox_dir"`
	TargetDocument    string        `yaml:"target_document"`
	AppendMarkup      bool          `yaml:"append_markup"`
	RecordFrontmatter bool          `yaml:"record_frontmatter"`
	Debounce          time.Duration `yaml:"debounce"`
}

// Default returns the configuration used for keys missing from the file
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			ImageRoot: ingest.DefaultImageRoot,
		},
		Ingest: IngestConfig{
			Hash:        string(ingest.HashMD5),
			OnConflict:  string(ingest.ConflictOverwrite),
			Concurrency: ingest.DefaultConcurrency,
		},
		Markup: MarkupConfig{
			Breakpoints:     append([]int(nil), ingest.DefaultBreakpoints...),
			PlainExtensions: append([]string(nil), ingest.DefaultPlainExtensions...),
			Shortcode:       ingest.DefaultShortcode,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults, applies environment overrides
// and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if root := os.Getenv(EnvProjectRoot); root != "" {
		cfg.Project.Root = root
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project.root is required")
	}
	if err := ingest.ValidateImageRoot(c.Project.ImageRoot); err != nil {
		return fmt.Errorf("project.image_root: %w", err)
	}
	if c.Ingest.Hash != "" && !ingest.HashAlgorithm(c.Ingest.Hash).Valid() {
		return fmt.Errorf("ingest.hash must be md5, sha256 or blake3, got %q", c.Ingest.Hash)
	}
	switch ingest.ConflictPolicy(c.Ingest.OnConflict) {
	case "", ingest.ConflictOverwrite, ingest.ConflictSuffix:
	default:
		return fmt.Errorf("ingest.on_conflict must be overwrite or suffix, got %q", c.Ingest.OnConflict)
	}
	for _, bp := range c.Markup.Breakpoints {
		if bp <= 0 {
			return fmt.Errorf("markup.breakpoints must be positive, got %d", bp)
		}
	}
	for _, ext := range c.Markup.PlainExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("markup.plain_extensions entries need a leading dot, got %q", ext)
		}
	}
	if c.Watch.InboxDir != "" && c.Watch.TargetDocument == "" {
		return fmt.Errorf("watch.target_document is required when watch.inbox_dir is set")
	}
	return nil
}

// Pipeline returns the resolved ingestion configuration
func (c *Config) Pipeline() ingest.Config {
	return ingest.Config{
		PreserveOriginalName: c.Ingest.PreserveOriginalName,
		InsertAsHTML:         c.Ingest.InsertAsHTML,
		ImageRoot:            c.Project.ImageRoot,
		PublicRoot:           c.Project.PublicRoot,
		Hash:                 ingest.HashAlgorithm(c.Ingest.Hash),
		OnConflict:           ingest.ConflictPolicy(c.Ingest.OnConflict),
		Breakpoints:          c.Markup.Breakpoints,
		PlainExtensions:      c.Markup.PlainExtensions,
		Shortcode:            c.Markup.Shortcode,
		Concurrency:          c.Ingest.Concurrency,
	}
}
