package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/dealtree/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrNoPaths        = errors.New("no catalog files to watch")
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked with the path of a changed file.
func WithOnChange(fn func(path string)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(path string, err error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

type fileStat struct {
	mtime time.Time
	size  int64
}

// Watcher monitors a set of catalog files. Each file is debounced on its
// own, so saving the geography catalog never delays an industry reload.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func(string)
	onError          func(string, error)
	forcePoll        bool

	fsWatcher  *fsnotify.Watcher
	debouncers map[string]*Debouncer
	fsTypes    map[string]FilesystemType
	stats      map[string]fileStat
	polling    bool

	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan string
}

// New creates a watcher for paths. Empty entries are ignored, so callers
// can pass configured catalog paths unfiltered.
func New(paths []string, opts ...Option) (*Watcher, error) {
	seen := make(map[string]bool)
	var abs []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			abs = append(abs, a)
		}
	}
	if len(abs) == 0 {
		return nil, ErrNoPaths
	}

	w := &Watcher{
		paths:            abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func(string) {},
		onError:          func(string, error) {},
		debouncers:       make(map[string]*Debouncer, len(abs)),
		fsTypes:          make(map[string]FilesystemType, len(abs)),
		stats:            make(map[string]fileStat, len(abs)),
		changeCh:         make(chan string, len(abs)),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range abs {
		w.debouncers[p] = NewDebouncer(w.debounceDuration)
	}
	return w, nil
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.polling = w.forcePoll || envBool("DT_FORCE_POLL")
	for _, p := range w.paths {
		w.fsTypes[p] = DetectFilesystemType(p)
		if isRemoteFilesystem(w.fsTypes[p]) {
			w.polling = true
		}
		info, err := os.Stat(p)
		switch {
		case err == nil:
			w.stats[p] = fileStat{mtime: info.ModTime(), size: info.Size()}
		case os.IsPermission(err):
			w.cancel()
			return ErrPermission
		default:
			// Not created yet; the first write will be reported.
			w.stats[p] = fileStat{}
		}
	}

	if !w.polling {
		if err := w.startFsnotify(ctx); err != nil {
			debug.Log("watcher: fsnotify unavailable, polling: %v", err)
			w.polling = true
		}
	}
	if w.polling {
		go w.watchPolling(ctx)
	}

	w.started = true
	debug.Log("watcher: watching %d catalog files (polling=%v)", len(w.paths), w.polling)
	return nil
}

// startFsnotify watches each parent directory, which survives the
// write-to-temp-and-rename pattern editors use.
func (w *Watcher) startFsnotify(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return err
		}
		dirs[dir] = true
	}
	w.fsWatcher = fsw
	go w.watchFsnotify(ctx, fsw.Events, fsw.Errors)
	return nil
}

// Stop stops watching. The Changed channel is left open so a pending
// receiver does not spin on a closed channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	for _, d := range w.debouncers {
		d.Cancel()
	}
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed delivers the path of each changed file.
func (w *Watcher) Changed() <-chan string {
	return w.changeCh
}

// Paths returns the watched files as absolute paths.
func (w *Watcher) Paths() []string {
	return append([]string(nil), w.paths...)
}

// FilesystemType returns the classification recorded for path at Start.
func (w *Watcher) FilesystemType(path string) FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if t, ok := w.fsTypes[path]; ok {
		return t
	}
	return FSTypeUnknown
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func (w *Watcher) watchFsnotify(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			path, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			d, watched := w.debouncers[path]
			if !watched {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(path, ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				d.Trigger(func() { w.notifyChange(path) })
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError("", err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range w.paths {
				w.pollOne(p)
			}
		}
	}
}

func (w *Watcher) pollOne(path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.mu.RLock()
		hadFile := !w.stats[path].mtime.IsZero()
		w.mu.RUnlock()
		switch {
		case os.IsNotExist(err):
			if hadFile {
				w.onError(path, ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.onError(path, ErrPermission)
		default:
			w.onError(path, err)
		}
		return
	}

	w.mu.Lock()
	last := w.stats[path]
	changed := info.ModTime().After(last.mtime) || info.Size() != last.size
	if changed {
		w.stats[path] = fileStat{mtime: info.ModTime(), size: info.Size()}
	}
	w.mu.Unlock()

	if changed {
		w.debouncers[path].Trigger(func() { w.notifyChange(path) })
	}
}

func (w *Watcher) notifyChange(path string) {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	if !started {
		return
	}

	debug.Log("watcher: %s changed", path)
	w.onChange(path)
	select {
	case w.changeCh <- path:
	default:
	}
}
