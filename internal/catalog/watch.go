package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
	"github.com/coral-mesh/dwarfsql/internal/retry"
)

// reloadPolicy retries reloads of a binary that is still being written.
var reloadPolicy = retry.Policy{
	Attempts: 4,
	Initial:  200 * time.Millisecond,
	Max:      2 * time.Second,
	Jitter:   0.1,
}

// partialWrite reports whether err looks like a binary caught mid-write.
func partialWrite(err error) bool {
	return errors.Is(err, dwarfinfo.ErrNotFound) ||
		errors.Is(err, dwarfinfo.ErrUnknownFormat) ||
		errors.Is(err, dwarfinfo.ErrNoDebugInfo)
}

// Reloadable is implemented by components that can reload their source.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// Watcher reloads a Reloadable when the watched binary is rewritten.
// Bursts of events are collapsed into one reload after the debounce delay.
type Watcher struct {
	target     Reloadable
	path       string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	logger     zerolog.Logger
	stopCh     chan struct{}
	doneCh     chan struct{}
	stopOnce   sync.Once
	startOnce  sync.Once
	reloadedCh chan error
	policy     retry.Policy
	cancel     context.CancelFunc
}

// NewWatcher watches the directory holding path. Watching the directory
// rather than the file survives editors and linkers that replace the file.
func NewWatcher(target Reloadable, path string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		target:   target,
		path:     abs,
		watcher:  fw,
		debounce: debounce,
		logger:   logger.With().Str("component", "watcher").Str("binary", abs).Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		policy:   reloadPolicy,
	}, nil
}

// Reloaded returns a channel receiving the outcome of every reload. It
// must be called before Start; outcomes are dropped when nobody reads.
func (w *Watcher) Reloaded() <-chan error {
	if w.reloadedCh == nil {
		w.reloadedCh = make(chan error, 1)
	}
	return w.reloadedCh
}

// Start begins watching in the background.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		go w.run(ctx)
	})
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		started := true
		w.startOnce.Do(func() { started = false })
		if started {
			w.cancel()
			<-w.doneCh
		}
		_ = w.watcher.Close()
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	reloadCh := make(chan struct{}, 1)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			stopTimer()
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	start := time.Now()
	attempt := 0
	err := retry.Do(ctx, w.policy, func(ctx context.Context) error {
		attempt++
		err := w.target.Reload(ctx)
		if err != nil && partialWrite(err) {
			w.logger.Debug().Err(err).Int("attempt", attempt).Msg("Binary not readable yet")
		}
		return err
	}, partialWrite)
	if err != nil {
		w.logger.Error().Err(err).Msg("Reload failed, keeping previous database")
	} else {
		w.logger.Info().Dur("duration", time.Since(start)).Msg("Reloaded binary")
	}

	if w.reloadedCh != nil {
		select {
		case w.reloadedCh <- err:
		default:
		}
	}
}
