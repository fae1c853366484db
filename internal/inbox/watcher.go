// Package inbox imports files dropped into a watched directory.
package inbox

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/storage"
)

// DefaultProcessedDir is where imported files are moved, relative to the
// inbox root. Hidden directories are never scanned.
const DefaultProcessedDir = ".processed"

// FailedDir holds files that could not be imported, next to an
// .error.txt file with the reason.
const FailedDir = ".failed"

const settle = 250 * time.Millisecond

// Importer turns a named file into a document.
type Importer interface {
	Import(ctx context.Context, name string, data []byte) (models.Document, error)
}

// Inbox imports files from a directory and archives them.
type Inbox struct {
	files     storage.Provider
	root      string
	processed string // empty: delete after import
	imp       Importer
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]string // checksum -> document id
}

// New creates an inbox over files rooted at root. processedDir is relative
// to root; an empty value deletes files once imported.
func New(files storage.Provider, root, processedDir string, imp Importer, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		files:     files,
		root:      root,
		processed: filepath.Clean(processedDir),
		imp:       imp,
		logger:    logger.With(slog.String("component", "inbox")),
		seen:      make(map[string]string),
	}
}

func (in *Inbox) archived(rel string) bool {
	if storage.Hidden(rel) {
		return true
	}
	if in.processed == "." || in.processed == "" {
		return false
	}
	rel = filepath.Clean(rel)
	return rel == in.processed || strings.HasPrefix(rel, in.processed+string(os.PathSeparator))
}

// Scan imports every file already waiting in the inbox and returns how
// many documents were created.
func (in *Inbox) Scan(ctx context.Context) (int, error) {
	items, err := in.files.List("")
	if err != nil {
		return 0, fmt.Errorf("inbox: scan: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	var n int
	for _, it := range items {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if in.archived(it.Path) {
			continue
		}
		ok, err := in.Process(ctx, it.Path)
		if err != nil {
			in.logger.Warn("inbox: import failed", slog.String("path", it.Path), slog.String("error", err.Error()))
			continue
		}
		if ok {
			n++
		}
	}
	in.logger.Info("inbox: scan complete", slog.Int("imported", n), slog.Int("files", len(items)))
	return n, nil
}

// Process imports one file and moves it out of the inbox. It reports
// whether a new document was created; identical content seen earlier is
// archived without a second import. A file that fails to import is moved
// to FailedDir and the error is returned.
func (in *Inbox) Process(ctx context.Context, rel string) (bool, error) {
	data, err := in.files.Read(rel)
	if err != nil {
		return false, err
	}
	sum := checksum.Sum(data)

	in.mu.Lock()
	docID, dup := in.seen[sum]
	in.mu.Unlock()
	if dup {
		in.logger.Info("inbox: duplicate skipped",
			slog.String("path", rel),
			slog.String("document_id", docID))
		return false, in.archive(rel)
	}

	doc, importErr := in.imp.Import(ctx, filepath.Base(rel), data)
	if importErr != nil {
		in.quarantine(rel, importErr)
		return false, fmt.Errorf("inbox: import %s: %w", rel, importErr)
	}

	in.mu.Lock()
	in.seen[sum] = doc.ID
	in.mu.Unlock()

	in.logger.Info("inbox: imported",
		slog.String("path", rel),
		slog.String("document_id", doc.ID))
	return true, in.archive(rel)
}

func (in *Inbox) archive(rel string) error {
	if in.processed == "" || in.processed == "." {
		return in.files.Delete(rel)
	}
	return in.files.Move(rel, filepath.Join(in.processed, rel))
}

func (in *Inbox) quarantine(rel string, cause error) {
	dst := filepath.Join(FailedDir, rel)
	if err := in.files.Move(rel, dst); err != nil {
		in.logger.Warn("inbox: quarantine failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := in.files.Write(dst+".error.txt", []byte(cause.Error()+"\n")); err != nil {
		in.logger.Warn("inbox: write error note failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// Watch scans the inbox, then imports files as they appear until ctx is
// cancelled. Writes are debounced so partially written files settle
// before they are read.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := in.addDirsRecursive(w, in.root); err != nil {
		return err
	}
	in.logger.Info("inbox: started", slog.String("root", in.root))

	if _, err := in.Scan(ctx); err != nil {
		in.logger.Warn("inbox: initial scan failed", slog.String("error", err.Error()))
	}

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			in.logger.Info("inbox: stopped")
			return nil

		case <-settleCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, rel := range paths {
				if _, statErr := os.Stat(filepath.Join(in.root, rel)); statErr != nil {
					continue
				}
				if _, err := in.Process(ctx, rel); err != nil {
					in.logger.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(in.root, ev.Name)
			if relErr != nil || in.archived(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := in.addDirsRecursive(w, ev.Name); addErr != nil {
						in.logger.Warn("inbox: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
						continue
					}
					in.scheduleDir(ev.Name, schedule)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !storage.Importable(rel) {
				continue
			}
			schedule(rel)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// scheduleDir queues importable files found in a newly created directory.
func (in *Inbox) scheduleDir(dir string, schedule func(string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.Importable(path) {
			return nil
		}
		rel, relErr := filepath.Rel(in.root, path)
		if relErr != nil || in.archived(rel) {
			return nil
		}
		schedule(rel)
		return nil
	})
}

// addDirsRecursive adds root and all its non-archive subdirectories to the
// watcher.
func (in *Inbox) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(in.root, path); rel != "." && in.archived(rel) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
