package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	rebuilds []string
	restarts int
	notified []string
	fail     bool
}

func (r *recorder) Rebuild(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuilds = append(r.rebuilds, path)
	if r.fail {
		return errors.New("compile failed")
	}
	return nil
}

func (r *recorder) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts++
	return nil
}

func (r *recorder) Notify(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, path)
	return nil
}

func (r *recorder) snapshot() (rebuilds []string, restarts int, notified []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rebuilds...), r.restarts, append([]string(nil), r.notified...)
}

func TestFilter(t *testing.T) {
	t.Parallel()
	f := Filter{OutDirs: []string{"/work/app/dist", "/work/app/types"}, Ignore: []string{"/generated/"}}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{name: "write in src", ev: fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Write}, want: true},
		{name: "create in src", ev: fsnotify.Event{Name: "/work/app/src/b.ts", Op: fsnotify.Create}, want: true},
		{name: "metadata only", ev: fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Chmod}, want: false},
		{name: "remove", ev: fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Remove}, want: false},
		{name: "rename", ev: fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Rename}, want: false},
		{name: "output dir", ev: fsnotify.Event{Name: "/work/app/dist/src/a.js", Op: fsnotify.Write}, want: false},
		{name: "declaration dir", ev: fsnotify.Event{Name: "/work/app/types/a.d.ts", Op: fsnotify.Create}, want: false},
		{name: "sibling of output dir", ev: fsnotify.Event{Name: "/work/app/dist2/a.ts", Op: fsnotify.Write}, want: true},
		{name: "tool cache", ev: fsnotify.Event{Name: "/work/app/.turbo/turbo-build.log", Op: fsnotify.Write}, want: false},
		{name: "node_modules", ev: fsnotify.Event{Name: "/work/app/node_modules/x/index.js", Op: fsnotify.Create}, want: false},
		{name: "extra ignore", ev: fsnotify.Event{Name: "/work/app/src/generated/a.ts", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Accept(tt.ev))
		})
	}
}

func TestDispatch_OnlyQualifyingEventsRebuild(t *testing.T) {
	t.Parallel()
	// Arrange
	rec := &recorder{}
	w := New("/work/app", Filter{OutDirs: []string{"/work/app/dist"}}, rec, WithRestarter(rec), WithNotifier(rec))
	events := make(chan fsnotify.Event, 3)
	events <- fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "/work/app/dist/src/a.js", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/work/app/src/a.ts", Op: fsnotify.Write}
	close(events)

	// Act
	err := w.Dispatch(context.Background(), events, make(chan error))

	// Assert
	require.NoError(t, err)
	rebuilds, restarts, notified := rec.snapshot()
	assert.Equal(t, []string{"/work/app/src/a.ts"}, rebuilds)
	assert.Equal(t, 1, restarts)
	assert.Equal(t, []string{"/work/app/src/a.ts"}, notified)
}

func TestDispatch_FailedRebuildDoesNotRestart(t *testing.T) {
	t.Parallel()
	rec := &recorder{fail: true}
	w := New("/w", Filter{}, rec, WithRestarter(rec), WithNotifier(rec))
	events := make(chan fsnotify.Event, 1)
	events <- fsnotify.Event{Name: "/w/src/a.ts", Op: fsnotify.Write}
	close(events)

	require.NoError(t, w.Dispatch(context.Background(), events, make(chan error)))

	rebuilds, restarts, notified := rec.snapshot()
	assert.Len(t, rebuilds, 1)
	assert.Zero(t, restarts)
	assert.Empty(t, notified)
}

func TestDispatch_WatcherErrorIsFatal(t *testing.T) {
	t.Parallel()
	w := New("/w", Filter{}, &recorder{})
	errs := make(chan error, 1)
	errs <- errors.New("queue overflow")

	err := w.Dispatch(context.Background(), make(chan fsnotify.Event), errs)
	assert.ErrorContains(t, err, "queue overflow")
}

func TestDispatch_StopsOnCancel(t *testing.T) {
	t.Parallel()
	w := New("/w", Filter{}, &recorder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, w.Dispatch(ctx, make(chan fsnotify.Event), make(chan error)))
}

func TestRun_RebuildsChangedFile(t *testing.T) {
	t.Parallel()
	// Arrange
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))

	changed := make(chan string, 16)
	rebuild := RebuildFunc(func(_ context.Context, path string) error {
		changed <- path
		return nil
	})
	w := New(root, Filter{OutDirs: []string{filepath.Join(root, "dist")}}, rebuild)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	// Act: keep touching the file until the watcher is up and reports it.
	target := filepath.Join(root, "src", "a.ts")
	deadline := time.After(10 * time.Second)
	var got string
	for got == "" {
		require.NoError(t, os.WriteFile(target, []byte("export {}"), 0o644))
		select {
		case got = <-changed:
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no rebuild observed")
		}
	}

	// Assert
	assert.Equal(t, target, got)
	cancel()
	assert.NoError(t, <-runErr)
}

type fakeProcess struct {
	pid int
	log *eventLog
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Stop() error {
	p.log.add("stop", p.pid)
	return nil
}

type eventLog struct {
	mu      sync.Mutex
	entries []string
	next    int
}

func (l *eventLog) add(kind string, pid int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, kind+":"+string(rune('0'+pid)))
}

func (l *eventLog) spawn(string, io.Writer, io.Writer) (process, error) {
	l.mu.Lock()
	l.next++
	pid := l.next
	l.mu.Unlock()
	l.add("spawn", pid)
	return &fakeProcess{pid: pid, log: l}, nil
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func newFakeSupervisor(log *eventLog) *Supervisor {
	s := NewSupervisor("serve", io.Discard, io.Discard)
	s.spawn = log.spawn
	return s
}

func TestSupervisor_RestartAndShutdown(t *testing.T) {
	t.Parallel()
	// Arrange
	log := &eventLog{}
	s := newFakeSupervisor(log)

	// Act
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Restart())
	require.NoError(t, s.Restart())
	require.NoError(t, s.Shutdown())

	// Assert
	assert.Equal(t, []string{
		"spawn:1",
		"stop:1", "spawn:2",
		"stop:2", "spawn:3",
		"stop:3",
	}, log.snapshot())
	<-s.Done()
	assert.ErrorIs(t, s.Restart(), ErrSupervisorStopped)
	assert.ErrorIs(t, s.Shutdown(), ErrSupervisorStopped)
}

// TestSupervisor_ShutdownRacesRestart fires restarts and a shutdown at the
// same time: every stop must precede the next spawn and nothing may run
// after the shutdown.
func TestSupervisor_ShutdownRacesRestart(t *testing.T) {
	t.Parallel()
	log := &eventLog{}
	s := newFakeSupervisor(log)
	require.NoError(t, s.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Restart()
			if err != nil {
				assert.ErrorIs(t, err, ErrSupervisorStopped)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Shutdown())
	}()
	wg.Wait()
	<-s.Done()

	entries := log.snapshot()
	require.NotEmpty(t, entries)
	running := 0
	for _, e := range entries {
		switch e[:4] {
		case "spaw":
			running++
		case "stop":
			running--
		}
		assert.LessOrEqual(t, running, 1, "at most one child at a time")
	}
	assert.Zero(t, running, "no child survives shutdown")
}

func TestSupervisor_FailedStart(t *testing.T) {
	t.Parallel()
	s := NewSupervisor("x", io.Discard, io.Discard)
	s.spawn = func(string, io.Writer, io.Writer) (process, error) {
		return nil, errors.New("no shell")
	}

	assert.Error(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Restart(), ErrSupervisorStopped)
}
