package datastore

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fluxflag/go-sdk/internal/flaglog"
)

// FileWatcher loads flag data from a fixed set of files into a Memory store and reloads it
// whenever any of those files change on disk.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	store     *Memory
	paths     []string
	loggers   flaglog.Loggers
	closeOnce sync.Once
	closeCh   chan struct{}
	doneCh    chan struct{}
}

// NewFileWatcher creates a FileWatcher for the given paths and performs the first load
// synchronously before returning, so the store is populated as soon as this call returns.
func NewFileWatcher(paths []string, store *Memory, loggers flaglog.Loggers) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		dir := filepath.Dir(p)
		_ = watcher.Add(dir)
	}

	fw := &FileWatcher{
		watcher: watcher,
		store:   store,
		paths:   paths,
		loggers: loggers,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if err := LoadFiles(paths, store, loggers); err != nil {
		loggers.Errorf("unable to load flags: %s", err)
	}

	go fw.watch()
	return fw, nil
}

func (fw *FileWatcher) watch() {
	defer close(fw.doneCh)
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case <-fw.closeCh:
			return
		case _, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			debounce.Reset(50 * time.Millisecond)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.loggers.Errorf("file watcher error: %s", err)
		case <-debounce.C:
			if err := LoadFiles(fw.paths, fw.store, fw.loggers); err != nil {
				fw.loggers.Errorf("unable to reload flags: %s", err)
			}
		}
	}
}

// Close stops the watcher goroutine and releases the underlying fsnotify watcher.
func (fw *FileWatcher) Close() error {
	fw.closeOnce.Do(func() { close(fw.closeCh) })
	<-fw.doneCh
	return fw.watcher.Close()
}
