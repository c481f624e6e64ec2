package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"dirpush/internal/candidate"
	"dirpush/internal/ledger"
	"dirpush/internal/outcome"
	"dirpush/internal/transport"
	"dirpush/internal/workload"
)

// memTransport is an in-memory Transport double. It records every upload
// and fails the paths listed in failing.
type memTransport struct {
	mu       sync.Mutex
	uploads  map[string]int
	failing  map[string]string
	delay    time.Duration
	received chan struct{}
}

func newMemTransport() *memTransport {
	return &memTransport{
		uploads: make(map[string]int),
		failing: make(map[string]string),
	}
}

func (m *memTransport) Upload(ctx context.Context, f candidate.File) outcome.Outcome[transport.Receipt] {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return outcome.Fail[transport.Receipt](ctx.Err())
		case <-time.After(m.delay):
		}
	}

	m.mu.Lock()
	m.uploads[f.LocalPath]++
	reason, fail := m.failing[f.LocalPath]
	m.mu.Unlock()

	if m.received != nil {
		m.received <- struct{}{}
	}

	if fail {
		return outcome.Fail[transport.Receipt](errors.New(reason))
	}
	return outcome.Ok(transport.Receipt{
		ID:         f.Name,
		RemotePath: f.RemoteKey(),
		UploadedAt: time.Now(),
	})
}

func (m *memTransport) count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads[path]
}

func (m *memTransport) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.uploads {
		n += c
	}
	return n
}

func registerFakes(w *workload.Workload, n int) []candidate.File {
	files := make([]candidate.File, n)
	for i := range files {
		files[i] = candidate.File{
			LocalPath: fmt.Sprintf("/fake/file-%03d.bin", i),
			Name:      fmt.Sprintf("file-%03d.bin", i),
			RelDir:    ".",
			Size:      int64(i + 1),
		}
		w.Register(files[i])
	}
	return files
}

func TestPoolDrainsEverything(t *testing.T) {
	w := workload.New(ledger.Disabled(zap.NewNop()))
	registerFakes(w, 40)

	tr := newMemTransport()
	pool := NewPool(5, tr, nil, zap.NewNop())
	be.Err(t, pool.Run(context.Background(), w), nil)

	s := w.Snapshot()
	be.Equal(t, s.Completed, 40)
	be.Equal(t, s.Failed, 0)
	be.Equal(t, s.Pending, 0)
	be.Equal(t, s.InProgress, 0)
	// Each candidate was uploaded exactly once.
	be.Equal(t, tr.total(), 40)
}

func TestPoolPartialFailure(t *testing.T) {
	w := workload.New(ledger.Disabled(zap.NewNop()))
	files := registerFakes(w, 10)

	tr := newMemTransport()
	tr.failing[files[2].LocalPath] = "network failure"
	tr.failing[files[7].LocalPath] = "remote service failure"

	pool := NewPool(3, tr, nil, zap.NewNop())
	be.Err(t, pool.Run(context.Background(), w), nil)

	s := w.Snapshot()
	be.Equal(t, s.Completed, 8)
	be.Equal(t, s.Failed, 2)

	reasons := make(map[string]string)
	for _, f := range w.Failed() {
		reasons[f.File.LocalPath] = f.Reason
	}
	be.Equal(t, reasons[files[2].LocalPath], "network failure")
	be.Equal(t, reasons[files[7].LocalPath], "remote service failure")
}

func TestPoolMoreWorkersThanWork(t *testing.T) {
	w := workload.New(ledger.Disabled(zap.NewNop()))
	registerFakes(w, 2)

	tr := newMemTransport()
	tr.delay = 20 * time.Millisecond

	// Extra workers must terminate once nothing is pending or in flight,
	// even though they found the queue empty while uploads were running.
	pool := NewPool(8, tr, nil, zap.NewNop())
	be.Err(t, pool.Run(context.Background(), w), nil)

	be.Equal(t, w.Snapshot().Completed, 2)
	be.Equal(t, tr.total(), 2)
}

func TestPoolEmptyWorkload(t *testing.T) {
	w := workload.New(ledger.Disabled(zap.NewNop()))
	pool := NewPool(4, newMemTransport(), nil, zap.NewNop())
	be.Err(t, pool.Run(context.Background(), w), nil)
	be.Equal(t, w.Snapshot().Completed, 0)
}

func TestPoolWritesThroughToLedger(t *testing.T) {
	root := t.TempDir()
	stateDir := t.TempDir()

	w := workload.New(ledger.New(stateDir, root, zap.NewNop()))
	var files []candidate.File
	for i := 0; i < 3; i++ {
		path := filepath.Join(root, fmt.Sprintf("real-%d.txt", i))
		be.Err(t, os.WriteFile(path, []byte(fmt.Sprintf("content %d", i)), 0o644), nil)
		c, err := candidate.Build(root, path)
		be.Err(t, err, nil)
		files = append(files, c)
		w.Register(c)
	}

	pool := NewPool(2, newMemTransport(), nil, zap.NewNop())
	be.Err(t, pool.Run(context.Background(), w), nil)

	store := ledger.New(stateDir, root, zap.NewNop())
	entries := store.Load()
	be.Equal(t, len(entries), 3)
	for _, c := range files {
		_, ok := entries[c.LocalPath]
		be.True(t, ok)
	}
}

func TestPoolGracefulCancellation(t *testing.T) {
	w := workload.New(ledger.Disabled(zap.NewNop()))
	registerFakes(w, 20)

	tr := newMemTransport()
	tr.delay = 10 * time.Millisecond
	tr.received = make(chan struct{}, 100)

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(2, tr, nil, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx, w) }()

	// Let a couple of transfers finish, then stop acquiring.
	<-tr.received
	<-tr.received
	cancel()

	be.Err(t, <-done, nil)

	s := w.Snapshot()
	// Pending candidates are left untouched for a future run.
	be.True(t, s.Pending > 0)
	be.Equal(t, s.Pending+s.InProgress+s.Completed+s.Failed, 20)
}
