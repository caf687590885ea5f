package dicomdir

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
)

// DefaultDebounce is the quiet period before a watched batch is imported.
const DefaultDebounce = 500 * time.Millisecond

// BatchResult describes one debounced watch batch.
type BatchResult struct {
	Files int         `json:"files"`
	Added int         `json:"added"`
	Flush FlushResult `json:"flush"`
}

// Watcher imports files as they appear under a directory. Events are
// collected until the directory has been quiet for the debounce period, then
// the batch is imported and flushed. All imports run on the Watch goroutine.
type Watcher struct {
	importer *Importer
	debounce time.Duration
	logger   *zap.SugaredLogger

	// OnBatch, when set, is called after every batch.
	OnBatch func(BatchResult, error)
}

// NewWatcher creates a watcher. A non-positive debounce uses DefaultDebounce.
func NewWatcher(importer *Importer, debounce time.Duration, log *zap.SugaredLogger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{importer: importer, debounce: debounce, logger: logger.OrNop(log)}
}

// Watch blocks until ctx is done. New subdirectories are watched too when
// recurse is set. Files already present when Watch starts are not imported;
// run ImportDirectory first for those.
func (w *Watcher) Watch(ctx context.Context, root string, recurse bool) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fw.Close()

	if err := w.add(fw, root, recurse); err != nil {
		return err
	}
	w.logger.Infow("Watching directory", logger.FieldPath, root, "recurse", recurse,
		"debounce_ms", w.debounce.Milliseconds())

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				w.importBatch(context.WithoutCancel(ctx), pending)
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if isHidden(filepath.Base(event.Name)) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if recurse && event.Has(fsnotify.Create) {
					if err := w.add(fw, event.Name, true); err != nil {
						w.logger.Warnw("Failed to watch new directory", logger.FieldPath, event.Name, logger.FieldError, err.Error())
					}
				}
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Directory watcher error", logger.FieldError, err.Error())

		case <-timer.C:
			if len(pending) > 0 {
				w.importBatch(ctx, pending)
				pending = make(map[string]struct{})
			}
		}
	}
}

// add watches dir, and every non-hidden subdirectory when recurse is set.
func (w *Watcher) add(fw *fsnotify.Watcher, dir string, recurse bool) error {
	if !recurse {
		return errors.Wrapf(fw.Add(dir), "failed to watch %s", dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return errors.Wrapf(fw.Add(path), "failed to watch %s", path)
	})
}

func (w *Watcher) importBatch(ctx context.Context, pending map[string]struct{}) {
	batch := BatchResult{Files: len(pending)}
	var batchErr error
	for path := range pending {
		added, err := w.importer.ImportFile(ctx, path)
		if err != nil {
			batchErr = err
			break
		}
		if added {
			batch.Added++
		}
	}
	if batchErr == nil {
		batch.Flush, batchErr = w.importer.Pipeline().Flush(ctx)
	}

	if batchErr != nil {
		w.logger.Warnw("Watched batch failed", logger.FieldCount, batch.Files, logger.FieldError, batchErr.Error())
	} else {
		w.logger.Infow("Imported watched batch", logger.FieldCount, batch.Files, "added", batch.Added)
	}
	if w.OnBatch != nil {
		w.OnBatch(batch, batchErr)
	}
}
