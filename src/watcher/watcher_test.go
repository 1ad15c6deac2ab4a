package watcher

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dragdropimg/src/common"
	"dragdropimg/src/config"
	"dragdropimg/src/ingest"
)

func testWatcherConfig(t *testing.T) *config.Config {
	t.Helper()

	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "blog")
	doc := filepath.Join(root, "content", "posts", "hello.md")

	if err := os.MkdirAll(filepath.Dir(doc), 0755); err != nil {
		t.Fatalf("Failed to create content folder: %v", err)
	}
	if err := os.WriteFile(doc, []byte("---\ntitle: \"Hello\"\n---\n\nFirst paragraph.\n"), 0644); err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Watch.InboxDir = filepath.Join(tmpDir, "inbox")
	cfg.Watch.TargetDocument = doc
	cfg.Watch.AppendMarkup = true
	cfg.Watch.RecordFrontmatter = true
	cfg.Watch.Debounce = 100 * time.Millisecond
	return cfg
}

func testPipeline() *ingest.Pipeline {
	march := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)
	return ingest.NewPipeline(
		ingest.WithClock(func() time.Time { return march }),
		ingest.WithProber(common.ProbeDimensions),
	)
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)), nil); err != nil {
		t.Fatalf("Failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestWatcher(t *testing.T) {
	cfg := testWatcherConfig(t)

	w, err := NewWatcher(cfg, testPipeline())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	// Start watching
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	// Drop an image into the inbox
	testFile := filepath.Join(cfg.Watch.InboxDir, "photo.jpg")
	if err := os.WriteFile(testFile, encodeJPEG(t, 2000, 100), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var event Event
	select {
	case event = <-w.Events():
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	if event.Type != EventIngested {
		t.Fatalf("Expected EventIngested, got %v (%v)", event.Type, event.Err)
	}
	if event.FilePath != testFile {
		t.Errorf("Expected filepath %s, got %s", testFile, event.FilePath)
	}

	expectedAsset := filepath.Join(cfg.Project.Root, "static", "images", "2024", "03", "photo.jpg")
	if _, err := os.Stat(expectedAsset); err != nil {
		t.Errorf("Asset not written to %s: %v", expectedAsset, err)
	}

	expectedMarkup := `{{< img src="/images/2024/03/photo.jpg" widths="1280,640,320" >}}`
	if event.Result.Markup != expectedMarkup {
		t.Errorf("Expected markup %s, got %s", expectedMarkup, event.Result.Markup)
	}

	// Verify the inbox file was archived
	if _, err := os.Stat(filepath.Join(cfg.Watch.InboxDir, "processed", "photo.jpg")); err != nil {
		t.Errorf("File was not archived: %v", err)
	}

	data, err := os.ReadFile(cfg.Watch.TargetDocument)
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}
	if !strings.Contains(string(data), "First paragraph.\n\n"+expectedMarkup+"\n") {
		t.Errorf("Markup not appended to document:\n%s", data)
	}

	doc, err := common.ParseDocument(cfg.Watch.TargetDocument)
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	if images := doc.Images(); len(images) != 1 || images[0] != "/images/2024/03/photo.jpg" {
		t.Errorf("Expected image recorded in frontmatter, got %v", images)
	}
}

func TestWatcherKeepsTOMLFrontmatter(t *testing.T) {
	cfg := testWatcherConfig(t)

	original := "+++\ntitle = \"Hello\"\n+++\n\nFirst paragraph.\n"
	if err := os.WriteFile(cfg.Watch.TargetDocument, []byte(original), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	w, err := NewWatcher(cfg, testPipeline())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	if err := os.WriteFile(filepath.Join(cfg.Watch.InboxDir, "small.jpg"), encodeJPEG(t, 100, 100), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	select {
	case event := <-w.Events():
		if event.Type != EventIngested {
			t.Fatalf("Expected EventIngested, got %v (%v)", event.Type, event.Err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	data, err := os.ReadFile(cfg.Watch.TargetDocument)
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}

	expected := original + "\n![](/images/2024/03/small.jpg)\n"
	if string(data) != expected {
		t.Errorf("Expected %q, got %q", expected, string(data))
	}
}

func TestWatcherReportsFailures(t *testing.T) {
	cfg := testWatcherConfig(t)

	// A file where the image root should be makes directory creation fail
	if err := os.WriteFile(filepath.Join(cfg.Project.Root, "static"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	w, err := NewWatcher(cfg, testPipeline())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	testFile := filepath.Join(cfg.Watch.InboxDir, "photo.jpg")
	if err := os.WriteFile(testFile, encodeJPEG(t, 10, 10), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	select {
	case event := <-w.Events():
		if event.Type != EventFailed {
			t.Fatalf("Expected EventFailed, got %v", event.Type)
		}
		if event.Err == nil {
			t.Error("Expected an error on failed event")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	if _, err := os.Stat(filepath.Join(cfg.Watch.InboxDir, "failed", "photo.jpg")); err != nil {
		t.Errorf("File was not moved to failed folder: %v", err)
	}
}

func TestWatcherIgnoresNonImageFiles(t *testing.T) {
	cfg := testWatcherConfig(t)

	w, err := NewWatcher(cfg, testPipeline())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	for _, name := range []string{"notes.txt", ".hidden.jpg"} {
		if err := os.WriteFile(filepath.Join(cfg.Watch.InboxDir, name), []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	// Should NOT receive event
	select {
	case event := <-w.Events():
		t.Errorf("Should not receive event for non-image file, got: %v", event)
	case <-time.After(1 * time.Second):
		// Expected - no event received
	}
}

func TestNewWatcherRequiresInbox(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()

	if _, err := NewWatcher(cfg, testPipeline()); err == nil {
		t.Error("Expected error without inbox folder")
	}
}

func TestIsImageFile(t *testing.T) {
	tests := map[string]bool{
		"/inbox/a.jpg":        true,
		"/inbox/B.PNG":        true,
		"/inbox/c.webp":       true,
		"/inbox/.d.jpg":       false,
		"/inbox/e.md":         false,
		"/inbox/processed":    false,
		"/inbox/f.jpg.crdown": false,
	}

	for path, expected := range tests {
		if got := isImageFile(path); got != expected {
			t.Errorf("isImageFile(%s) = %v, expected %v", path, got, expected)
		}
	}
}
