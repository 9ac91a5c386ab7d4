// Package configwatch implements the Config Watcher (spec §4.10/§4.13):
// debounced fsnotify monitoring of the config file so editors that write via
// rename-over (vim, many IDEs) and editors that truncate-then-write both
// produce exactly one reload, not one per intermediate event.
package configwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/logging"
)

const opWatch = "configwatch.Watch"

// DebounceWindow coalesces bursts of filesystem events (multiple writes
// during a single save, or a remove+create from an atomic rename-over) into
// one reload signal.
const DebounceWindow = 200 * time.Millisecond

// Watcher notifies a channel whenever the watched config file settles after
// being written.
type Watcher struct {
	fsw     *fsnotify.Watcher
	path    string
	Changed chan struct{}
	log     *slog.Logger
}

// New starts watching the directory containing path (fsnotify watches
// directories, not individual files, so that rename-over-path edits are
// seen even though the original inode is replaced).
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, opWatch, err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errs.Wrap(errs.KindIO, opWatch, err)
	}
	w := &Watcher{
		fsw:     fsw,
		path:    filepath.Clean(path),
		Changed: make(chan struct{}, 1),
		log:     logging.Get(logging.Config),
	}
	return w, nil
}

// Run blocks, debouncing events against the watched path until ctx is
// cancelled. Each settled change sends (non-blocking) on Changed.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.fsw.Close()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DebounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(DebounceWindow)
			}
			timerC = timer.C

		case <-timerC:
			select {
			case w.Changed <- struct{}{}:
			default:
			}
			timerC = nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		}
	}
}
