package supervisor

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"girder/internal/config"
	"girder/internal/logging"
)

// WatchAgents reloads the agent catalog whenever the file at path
// changes. Edits are debounced because editors fire several events per
// save. The returned stop function shuts the watcher down.
func (s *Supervisor) WatchAgents(path string, log *slog.Logger) (stop func(), err error) {
	if log == nil {
		log = s.log
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors typically replace the file, which
	// drops a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		defer logging.LogPanic("agents-watcher", nil)

		const debounce = 100 * time.Millisecond
		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)

			case <-timer.C:
				agents, err := config.LoadAgents(path)
				if err != nil {
					log.Warn("agent catalog reload failed", "path", path, "error", err)
					continue
				}
				log.Info("agent catalog reloaded", "path", path, "agents", len(agents))
				s.SetAgents(agents)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
