package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahyarmirrashed/noeol/internal/config"
	"github.com/mahyarmirrashed/noeol/internal/filter"
	"github.com/mahyarmirrashed/noeol/internal/report"
	"github.com/mahyarmirrashed/noeol/internal/scanner"
)

// syncBuffer is written by the watch loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	out    *syncBuffer
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	return launch(t, cfg, true)
}

// launch starts a watcher, running the initial scan first when scan is set.
func launch(t *testing.T, cfg *config.Config, scan bool) *harness {
	t.Helper()
	f, err := filter.New(cfg.IgnoreDirs, cfg.ScanPatterns)
	require.NoError(t, err)

	h := &harness{out: &syncBuffer{}, done: make(chan error, 1)}
	sc := scanner.New(f, report.New(h.out, &syncBuffer{}, true, true))
	w := New(cfg, sc)
	if scan {
		sc.Run(cfg.Paths)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})

	select {
	case <-w.Ready():
	case err := <-h.done:
		t.Fatalf("watcher stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	return h
}

func (h *harness) waitFor(t *testing.T, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(h.out.String(), path)
	}, 5*time.Second, 20*time.Millisecond, "expected %s to be reported", path)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRun_ReportsNewFileWithoutEOL(t *testing.T) {
	root := t.TempDir()
	h := start(t, &config.Config{Paths: []string{root}})

	bad := filepath.Join(root, "bad.txt")
	write(t, bad, "x")

	h.waitFor(t, bad)
}

func TestRun_SkipsIgnoredAndUnmatched(t *testing.T) {
	root := t.TempDir()
	ignored := filepath.Join(root, "vendor")
	require.NoError(t, os.Mkdir(ignored, 0o755))

	h := start(t, &config.Config{
		Paths:        []string{root},
		IgnoreDirs:   []string{ignored},
		ScanPatterns: []string{"*.go"},
	})

	write(t, filepath.Join(ignored, "skip.go"), "x")
	write(t, filepath.Join(root, "notes.txt"), "x")
	sentinel := filepath.Join(root, "main.go")
	write(t, sentinel, "x")

	h.waitFor(t, sentinel)
	assert.NotContains(t, h.out.String(), "skip.go")
	assert.NotContains(t, h.out.String(), "notes.txt")
}

func TestRun_InitialFailureNotReportedAgain(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "old.txt")
	write(t, old, "x")

	h := start(t, &config.Config{Paths: []string{root}})
	assert.Equal(t, old+"\n", h.out.String())

	sentinel := filepath.Join(root, "new.txt")
	write(t, sentinel, "y")
	h.waitFor(t, sentinel)

	assert.Equal(t, 1, strings.Count(h.out.String(), old))
}

func TestRun_ChmodIsNotAChange(t *testing.T) {
	root := t.TempDir()
	untouched := filepath.Join(root, "untouched.txt")
	write(t, untouched, "x")

	h := launch(t, &config.Config{Paths: []string{root}}, false)
	require.NoError(t, os.Chmod(untouched, 0o600))

	sentinel := filepath.Join(root, "later.txt")
	write(t, sentinel, "y")
	h.waitFor(t, sentinel)

	assert.NotContains(t, h.out.String(), untouched)
}

func TestRun_RemovedFileReportedAgainWhenRecreated(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "bad.txt")
	write(t, bad, "x")

	h := start(t, &config.Config{Paths: []string{root}})
	require.NoError(t, os.Remove(bad))
	write(t, bad, "x")

	require.Eventually(t, func() bool {
		return strings.Count(h.out.String(), bad) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := start(t, &config.Config{Paths: []string{t.TempDir()}})
	h.cancel()

	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_NothingToWatch(t *testing.T) {
	cfg := &config.Config{Paths: []string{filepath.Join(t.TempDir(), "missing")}}
	f, err := filter.New(nil, nil)
	require.NoError(t, err)
	sc := scanner.New(f, report.New(&bytes.Buffer{}, &bytes.Buffer{}, true, true))

	err = New(cfg, sc).Run(context.Background())
	assert.Error(t, err)
}
