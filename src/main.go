package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dragdropimg/src/common"
	"dragdropimg/src/config"
	"dragdropimg/src/ingest"
	"dragdropimg/src/watcher"
)

// EnvConfigPath points at the YAML config
const EnvConfigPath = "DRAGDROPIMG_CONFIG"

func main() {
	fmt.Println("dragdropimg - Drop images into your Hugo site")
	fmt.Println("=============================================")

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		configPath = "../config.yaml"
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded config: project %s, images under %s", cfg.Project.Root, cfg.Project.ImageRoot)

	pipeline := ingest.NewPipeline(ingest.WithProber(common.ProbeDimensions))

	// Create watcher
	w, err := watcher.NewWatcher(cfg, pipeline)
	if err != nil {
		log.Fatalf("Failed to create watcher: %v", err)
	}

	// Start watching
	if err := w.Start(); err != nil {
		log.Fatalf("Failed to start watcher: %v", err)
	}

	log.Printf("Watcher started. Drop images into %s", cfg.Watch.InboxDir)
	log.Println("Press Ctrl+C to stop")

	// Listen for events
	go func() {
		for event := range w.Events() {
			if event.Err != nil {
				log.Printf("📄 Event: %v - %s: %v", event.Type, event.FilePath, event.Err)
				continue
			}
			log.Printf("📄 Event: %v - %s\n%s", event.Type, event.FilePath, event.Result.Markup)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if err := w.Stop(); err != nil {
		log.Printf("Failed to stop watcher: %v", err)
	}
}
