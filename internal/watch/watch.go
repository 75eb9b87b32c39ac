package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/farmergreg/rfsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/fsnotify.v1"

	"github.com/mahyarmirrashed/noeol/internal/config"
	"github.com/mahyarmirrashed/noeol/internal/scanner"
	"github.com/mahyarmirrashed/noeol/internal/utils"
)

// Watcher re-checks files under the scan directories as they change.
type Watcher struct {
	cfg     *config.Config
	scanner *scanner.Scanner

	// failing holds files last seen without an EOL.
	failing map[string]bool
	// ready is closed once every directory is being watched.
	ready chan struct{}
}

// New creates a Watcher. It hooks into sc to learn which files fail during
// the initial scan, so New must be called before that scan runs.
func New(cfg *config.Config, sc *scanner.Scanner) *Watcher {
	w := &Watcher{
		cfg:     cfg,
		scanner: sc,
		failing: make(map[string]bool),
		ready:   make(chan struct{}),
	}
	sc.Observe = w.observe
	return w
}

// Ready is closed once the watcher has registered every directory.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

func (w *Watcher) observe(path string, hasEOL bool) {
	if hasEOL {
		delete(w.failing, path)
	} else {
		w.failing[path] = true
	}
}

// Run watches every scan directory; it blocks until stopped by a signal or context cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := rfsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range w.cfg.Paths {
		if w.scanner.Filter().IsIgnored(dir) {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			log.Warnf("Not watching %s: not a directory", dir)
			continue
		}
		if err := watcher.AddRecursive(dir); err != nil {
			log.Warnf("Cannot watch %s: %v", dir, err)
			continue
		}
		log.Infof("Watching %s", dir)
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no directory could be watched")
	}
	close(w.ready)

	// Signal handling for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case sig := <-signals:
			log.Infof("Received signal: %s, shutting down...", sig)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.handle(event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(w.failing, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("error:", err)
		}
	}
}

// handle checks a changed path if the walker would have considered it.
func (w *Watcher) handle(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		// Removed before we got to it.
		delete(w.failing, path)
		return
	}
	if info.IsDir() {
		return
	}

	f := w.scanner.Filter()
	if f.IsIgnored(filepath.Dir(path)) || !f.Matches(filepath.Base(path)) {
		log.Debugf("Excluded: %s", path)
		return
	}
	if !scanner.Candidate(path, info.Mode().Type()) {
		return
	}

	// Delay addresses editors that write in several steps
	if w.cfg.Delay > 0 {
		time.Sleep(w.cfg.Delay)
	}

	if w.failing[path] {
		// Already reported; only track whether it got fixed.
		if ok, err := w.scanner.Check(path); err == nil && ok {
			delete(w.failing, path)
			log.Infof("EOL restored: %s", path)
		}
		return
	}

	res := w.scanner.CheckFile(path)
	if res.Failed > 0 {
		utils.SendNotification(w.cfg.Notifications, "noeol", fmt.Sprintf("No EOL: %s", filepath.ToSlash(path)))
	}
}
