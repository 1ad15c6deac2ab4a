package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"dragdropimg/src/common"
	"dragdropimg/src/config"
	"dragdropimg/src/ingest"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to config.yaml (default: $DRAGDROPIMG_CONFIG)")
	document := flag.StringP("doc", "d", "", "document the images are inserted into")
	root := flag.StringP("root", "r", "", "project root (overrides config)")
	ext := flag.String("ext", "", "extension for stdin payloads, e.g. .png (sniffed when empty)")
	asHTML := flag.Bool("html", false, "emit <img> tags instead of markdown for plain references")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ingest [flags] <image>... (use - to read a pasted image from stdin)\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pipelineCfg := cfg.Pipeline()
	if *asHTML {
		pipelineCfg.InsertAsHTML = true
	}

	payloads := make([]ingest.Payload, 0, flag.NArg())
	for _, arg := range flag.Args() {
		payload, err := readPayload(arg, *ext)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", arg, err)
		}
		payloads = append(payloads, payload)
	}

	pipeline := ingest.NewPipeline(ingest.WithProber(common.ProbeDimensions))
	items := pipeline.IngestAll(context.Background(), payloads, pipelineCfg, *document, cfg.Project.Root)

	failed := 0
	for i, item := range items {
		if item.Err != nil {
			failed++
			log.Printf("❌ %s: %v", flag.Arg(i), item.Err)
			continue
		}
		fmt.Println(item.Result.Markup)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// loadConfig reads the config file when one is given, otherwise builds
// one from defaults and the project root flag
func loadConfig(path, root string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("DRAGDROPIMG_CONFIG")
	}

	if path == "" {
		cfg := config.Default()
		cfg.Project.Root = root
		if cfg.Project.Root == "" {
			cfg.Project.Root = os.Getenv(config.EnvProjectRoot)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if root != "" {
		cfg.Project.Root = root
	}
	return cfg, nil
}

// readPayload reads a dropped file, or stdin for "-" which models a
// clipboard paste with no origin filename
func readPayload(arg, ext string) (ingest.Payload, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ingest.Payload{}, err
		}
		return ingest.Payload{Bytes: data, Extension: ext}, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return ingest.Payload{}, err
	}
	return ingest.Payload{Bytes: data, SourcePath: arg}, nil
}
