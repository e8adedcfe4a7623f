package walker

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts a debounced fsnotify watch over the project root and
// feeds a dirty-path set into w via SetDirty as events settle. It
// returns a stop function. Recursive watching is approximated by adding
// every directory discovered on the initial walk plus any directory
// created afterward; fsnotify itself does not support recursive watches.
func (w *Walker) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	candidates, walkErr := w.Walk(context.Background())
	if walkErr == nil {
		seen := map[string]struct{}{w.loc.Root: {}}
		for _, c := range candidates {
			dir := filepath.Dir(c.AbsPath)
			if _, ok := seen[dir]; !ok {
				seen[dir] = struct{}{}
				_ = fw.Add(dir)
			}
		}
	}
	_ = fw.Add(w.loc.Root)

	done := make(chan struct{})
	go func() {
		pending := make(map[string]struct{})
		timer := time.NewTimer(250 * time.Millisecond)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				rel, relErr := w.loc.RelPath(ev.Name)
				if relErr != nil {
					continue
				}
				pending[rel] = struct{}{}
				timer.Reset(250 * time.Millisecond)
			case <-timer.C:
				if len(pending) == 0 {
					continue
				}
				flushed := pending
				pending = make(map[string]struct{})
				w.SetDirty(flushed)
			case <-fw.Errors:
				// A watcher error means no reliable signal; clear any
				// stale dirty set rather than leave partial information.
				w.SetDirty(nil)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = fw.Close()
	}, nil
}
