package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

type changeLog struct {
	mu    sync.Mutex
	paths []string
}

func (c *changeLog) add(p string) {
	c.mu.Lock()
	c.paths = append(c.paths, p)
	c.mu.Unlock()
}

func (c *changeLog) count(p string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.paths {
		if q == p {
			n++
		}
	}
	return n
}

func TestNew_RequiresPaths(t *testing.T) {
	if _, err := New([]string{"", "  "}); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestNew_DeduplicatesPaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "geo.yaml")
	w, err := New([]string{p, p, ""})
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Paths(); len(got) != 1 || got[0] != p {
		t.Errorf("unexpected paths %v", got)
	}
}

func testWatcherDetectsChange(t *testing.T, opts ...Option) {
	dir := t.TempDir()
	geo := filepath.Join(dir, "geo.yaml")
	ind := filepath.Join(dir, "industry.yaml")
	writeCatalog(t, geo, "continents: []")
	writeCatalog(t, ind, "sectors: []")

	var log changeLog
	opts = append([]Option{
		WithDebounceDuration(50 * time.Millisecond),
		WithPollInterval(50 * time.Millisecond),
		WithOnChange(log.add),
	}, opts...)
	w, err := New([]string{geo, ind}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeCatalog(t, geo, "continents: [{id: asia, name: Asia}]")
	time.Sleep(400 * time.Millisecond)

	if log.count(geo) == 0 {
		t.Error("expected geography change to be detected")
	}
	if log.count(ind) != 0 {
		t.Error("industry catalog did not change")
	}
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	testWatcherDetectsChange(t)
}

func TestWatcher_PollingFallback(t *testing.T) {
	testWatcherDetectsChange(t, WithForcePoll(true))
}

func TestWatcher_ChangedChannel(t *testing.T) {
	dir := t.TempDir()
	geo := filepath.Join(dir, "geo.json")
	writeCatalog(t, geo, `{"continents": []}`)

	w, err := New([]string{geo},
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(60 * time.Millisecond)
	writeCatalog(t, geo, `{"continents": [{"id": "eu", "name": "Europe"}]}`)

	select {
	case got := <-w.Changed():
		if got != geo {
			t.Errorf("expected %s, got %s", geo, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv("DT_FORCE_POLL", "yes")
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "geo.yaml")})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Error("expected polling when DT_FORCE_POLL is set")
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	dir := t.TempDir()
	geo := filepath.Join(dir, "geo.yaml")
	writeCatalog(t, geo, "continents: []")

	var removed atomic.Bool
	w, err := New([]string{geo},
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(path string, err error) {
			if path == geo && errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(geo); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if !removed.Load() {
		t.Error("expected ErrFileRemoved")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "missing.yaml")}, WithForcePoll(true))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("should not be started yet")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("missing file should not fail Start: %v", err)
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("should be stopped")
	}
	w.Stop()
}

func TestWatcher_ContextCancelStopsNotifications(t *testing.T) {
	dir := t.TempDir()
	geo := filepath.Join(dir, "geo.yaml")
	writeCatalog(t, geo, "a")

	var log changeLog
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New([]string{geo},
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(log.add),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	cancel()
	time.Sleep(50 * time.Millisecond)

	writeCatalog(t, geo, "changed after cancel")
	time.Sleep(150 * time.Millisecond)
	if log.count(geo) != 0 {
		t.Error("no change should be reported after the context ends")
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv("DT_TEST_BOOL", v)
		if !envBool("DT_TEST_BOOL") {
			t.Errorf("envBool(%q) should be true", v)
		}
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		t.Setenv("DT_TEST_BOOL", v)
		if envBool("DT_TEST_BOOL") {
			t.Errorf("envBool(%q) should be false", v)
		}
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	for _, fs := range []FilesystemType{FSTypeNFS, FSTypeSMB, FSTypeFUSE, FSType9P} {
		if !isRemoteFilesystem(fs) {
			t.Errorf("%s should be remote", fs)
		}
	}
	for _, fs := range []FilesystemType{FSTypeLocal, FSTypeUnknown} {
		if isRemoteFilesystem(fs) {
			t.Errorf("%s should not be remote", fs)
		}
	}
}

func TestDetectFilesystemType_NonExistentPath(t *testing.T) {
	got := DetectFilesystemType(filepath.Join(t.TempDir(), "nope", "geo.yaml"))
	if got == "" {
		t.Error("expected a classification")
	}
}
