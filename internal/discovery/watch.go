package discovery

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"muster/pkg/logging"
)

// Watch re-runs Run(opts) every time a test.config.json file changes under
// servers/, clients/, or facilitators/ and sends the new Result on the
// returned channel. It runs until stop is closed or the watcher's event
// stream ends, and returns an error only if the watcher fails to start; the
// channel is closed on exit. Intended for local iteration, not CI runs.
func Watch(opts Options, stop <-chan struct{}) (<-chan Result, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, kindDir := range []string{"servers", "clients", "facilitators"} {
		root := filepath.Join(opts.BaseDir, kindDir)
		for _, dir := range subdirs(root) {
			if err := watcher.Add(dir); err != nil {
				logging.Warn("Discovery", "watch: failed to add %s: %v", dir, err)
			}
		}
	}

	results := make(chan Result)
	go func() {
		defer close(results)
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != "test.config.json" {
					continue
				}
				logging.Info("Discovery", "watch: %s changed, re-running discovery", event.Name)
				results <- Run(opts)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("Discovery", "watch: %v", err)
			}
		}
	}()

	return results, nil
}
