package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dragdropimg/src/common"
	"dragdropimg/src/config"
	"dragdropimg/src/ingest"
)

// Watcher ingests images dropped into an inbox folder. It is the host
// side of the pipeline: it turns file events into payloads and inserts
// the returned markup into the target document.
type Watcher struct {
	cfg      *config.Config
	pipeline *ingest.Pipeline
	mover    *Mover
	watcher  *fsnotify.Watcher
	events   chan Event
	done     chan struct{}

	mu       sync.Mutex
	debounce map[string]*time.Timer
	stopped  bool

	// serialises edits of the target document
	docMu sync.Mutex
}

// Event reports the outcome of one dropped image
type Event struct {
	Type     EventType
	FilePath string
	Result   *ingest.Result
	Err      error
}

// EventType represents the type of ingestion event
type EventType int

const (
	EventIngested EventType = iota
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventIngested:
		return "ingested"
	case EventFailed:
		return "failed"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true, ".svg": true,
}

// NewWatcher creates a new inbox watcher
func NewWatcher(cfg *config.Config, pipeline *ingest.Pipeline) (*Watcher, error) {
	if cfg.Watch.InboxDir == "" {
		return nil, fmt.Errorf("watch.inbox_dir is not configured")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		pipeline: pipeline,
		mover:    NewMover(cfg.Watch.InboxDir),
		watcher:  fsWatcher,
		events:   make(chan Event, 100),
		done:     make(chan struct{}),
		debounce: make(map[string]*time.Timer),
	}, nil
}

// GetMover returns the mover for archive operations
func (w *Watcher) GetMover() *Mover {
	return w.mover
}

// Start begins monitoring the inbox folder
func (w *Watcher) Start() error {
	inbox := w.cfg.Watch.InboxDir
	if err := os.MkdirAll(inbox, 0755); err != nil {
		return fmt.Errorf("failed to create inbox folder: %w", err)
	}

	if err := w.watcher.Add(inbox); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", inbox, err)
	}
	log.Printf("Watching inbox: %s", inbox)

	// Start event processing goroutine
	go w.processEvents()

	return nil
}

// processEvents turns fsnotify events into debounced ingestions
func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}

			// Copies and downloads arrive as several writes
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, exists := w.debounce[path]; exists {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(w.cfg.Watch.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()

		w.handleFile(path)
	})
}

// handleFile ingests a single inbox file
func (w *Watcher) handleFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// already archived by an earlier event
			return
		}
		w.fail(path, fmt.Errorf("failed to read dropped file: %w", err))
		return
	}

	res, err := w.pipeline.Ingest(
		ingest.Payload{Bytes: data, SourcePath: path},
		w.cfg.Pipeline(),
		w.cfg.Watch.TargetDocument,
		w.cfg.Project.Root,
	)
	if err != nil {
		w.fail(path, err)
		return
	}
	log.Printf("🖼️  Ingested %s -> %s", filepath.Base(path), res.Location.Path())

	if err := w.updateDocument(res); err != nil {
		log.Printf("Failed to update %s: %v", w.cfg.Watch.TargetDocument, err)
	}

	if _, err := w.mover.Archive(path, StatusProcessed); err != nil {
		log.Printf("Failed to archive %s: %v", path, err)
	}

	w.emit(Event{Type: EventIngested, FilePath: path, Result: res})
}

// updateDocument inserts the markup the way an editor would at the
// cursor: appended at the end of the target document
func (w *Watcher) updateDocument(res *ingest.Result) error {
	if !w.cfg.Watch.AppendMarkup && !w.cfg.Watch.RecordFrontmatter {
		return nil
	}

	w.docMu.Lock()
	defer w.docMu.Unlock()

	doc, err := common.ParseDocument(w.cfg.Watch.TargetDocument)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if w.cfg.Watch.AppendMarkup {
		doc.AppendMarkup(res.Markup)
	}
	if w.cfg.Watch.RecordFrontmatter {
		if doc.CanRecordImages() {
			doc.AddImage(res.PublicPath)
		} else {
			log.Printf("Frontmatter of %s is not YAML, not recording %s", doc.FilePath, res.PublicPath)
		}
	}

	return doc.Write()
}

func (w *Watcher) fail(path string, err error) {
	log.Printf("❌ Failed to ingest %s: %v", path, err)

	if _, archiveErr := w.mover.Archive(path, StatusFailed); archiveErr != nil {
		log.Printf("Failed to archive %s: %v", path, archiveErr)
	}

	w.emit(Event{Type: EventFailed, FilePath: path, Err: err})
}

func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

func isImageFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(base))]
}

// Events returns the event channel
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Pending debounced files are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
