package catalog

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"humaneval/pkg/observability"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// Reloader is satisfied by *CSVCatalog
type Reloader interface {
	Reload() error
	Len() int
	Path() string
}

// Watcher reloads the catalog when its file changes. Existing sessions keep
// their subsets; only sessions started after the reload see the new pool.
type Watcher struct {
	catalog Reloader
	metrics *observability.Collector
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
	delay   time.Duration
}

// NewWatcher starts watching the catalog's directory. Editors often replace
// files by rename, so the directory is watched rather than the file.
func NewWatcher(catalog Reloader, metrics *observability.Collector, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(catalog.Path())
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		delay:   debounceDelay,
	}
	go w.watchLoop()

	logger.Info("Catalog hot reloading enabled", zap.String("path", catalog.Path()))
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	target := filepath.Clean(w.catalog.Path())
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("Catalog file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.delay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Catalog watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info("Stopping catalog watcher")
			return
		}
	}
}

func (w *Watcher) reload() {
	err := w.catalog.Reload()
	w.metrics.CatalogLoaded(w.catalog.Len(), err)
	if err != nil {
		w.logger.Error("Catalog reload failed, keeping previous table", zap.Error(err))
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.stopCh) })
	return nil
}
