package inputs

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ImageUpdate is a re-decoded background image.
type ImageUpdate struct {
	// Index is the position of the path passed to WatchImages.
	Index int
	Image *ImageSource
}

// Watcher re-decodes image files when they change on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]int
	updates chan ImageUpdate
	done    chan struct{}
}

// WatchImages watches the directories holding paths, since editors often
// replace a file rather than write it in place.
func WatchImages(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		paths:   make(map[string]int),
		updates: make(chan ImageUpdate, len(paths)),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]struct{})
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.paths[abs] = i
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.updates)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			index, ok := w.paths[abs]
			if !ok {
				continue
			}
			img, err := ReadImageFile(abs)
			if err != nil {
				// usually a partially written file; the next write retries
				log.Printf("Skipping reload of %s: %v", abs, err)
				continue
			}
			log.Printf("Reloaded image %s", abs)
			select {
			case w.updates <- ImageUpdate{Index: index, Image: img}:
			case <-w.done:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// Updates delivers reloaded images. It is closed after Close.
func (w *Watcher) Updates() <-chan ImageUpdate {
	return w.updates
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
