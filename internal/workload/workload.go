// Package workload owns the in-memory queue state machine for one
// discovery-to-completion transfer run. Every discovered candidate is in
// exactly one of pending, in-progress, completed, or failed at any time.
package workload

import (
	"sync"

	"dirpush/internal/candidate"
	"dirpush/internal/discover"
	"dirpush/internal/ledger"
)

// Failure pairs a candidate with the reason its transfer did not succeed.
// Reason may be empty.
type Failure struct {
	File   candidate.File
	Reason string
}

// Stats is a point-in-time snapshot of the workload's buffers.
type Stats struct {
	Pending        int
	InProgress     int
	Completed      int
	Failed         int
	Skipped        int
	TotalBytes     int64
	RemainingBytes int64
}

// Workload aggregates queues and progress for one transfer run. All
// methods are safe for concurrent use; the pending→in-progress move in
// AcquireNext is the correctness-critical section and happens entirely
// under the mutex.
type Workload struct {
	store *ledger.Store

	mu         sync.Mutex
	discovered []candidate.File
	pending    []candidate.File
	inProgress map[string]candidate.File
	completed  []candidate.File
	failed     []Failure
	skipped    []discover.Skip

	totalBytes     int64
	completedBytes int64
}

// New creates an empty workload. Completions are written through to store;
// pass a disabled store to run without persistence.
func New(store *ledger.Store) *Workload {
	return &Workload{
		store:      store,
		inProgress: make(map[string]candidate.File),
	}
}

// Register adds a discovered candidate to the pending queue and grows the
// byte total by its size.
func (w *Workload) Register(c candidate.File) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.discovered = append(w.discovered, c)
	w.pending = append(w.pending, c)
	w.totalBytes += c.Size
}

// RegisterSkip records a file that bypassed the queue at discovery time.
func (w *Workload) RegisterSkip(s discover.Skip) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.skipped = append(w.skipped, s)
}

// AcquireNext moves the head of the pending queue into in-progress and
// returns it. The second result is false when nothing is pending.
// Concurrent callers never receive the same candidate twice.
func (w *Workload) AcquireNext() (candidate.File, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return candidate.File{}, false
	}

	c := w.pending[0]
	w.pending = w.pending[1:]
	w.inProgress[c.LocalPath] = c
	return c, true
}

// MarkCompleted moves c from in-progress to completed and writes the
// upload record through to the ledger. Duplicate completions are no-ops,
// so bytes and counts are never double-accounted.
func (w *Workload) MarkCompleted(c candidate.File) bool {
	w.mu.Lock()
	if _, ok := w.inProgress[c.LocalPath]; !ok {
		w.mu.Unlock()
		return false
	}
	delete(w.inProgress, c.LocalPath)
	w.completed = append(w.completed, c)
	w.completedBytes += c.Size
	w.mu.Unlock()

	// Ledger I/O happens outside the lock; a crash here only costs a
	// redundant re-upload on the next run.
	w.store.Save(c)
	return true
}

// MarkFailed moves c from in-progress to failed, carrying reason.
// Duplicate failures are no-ops.
func (w *Workload) MarkFailed(c candidate.File, reason string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.inProgress[c.LocalPath]; !ok {
		return false
	}
	delete(w.inProgress, c.LocalPath)
	w.failed = append(w.failed, Failure{File: c, Reason: reason})
	return true
}

// HasPending reports whether any candidate is waiting to be acquired.
func (w *Workload) HasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

// RemainingFiles counts candidates that are pending or in-progress.
func (w *Workload) RemainingFiles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) + len(w.inProgress)
}

// RemainingBytes sums the sizes of candidates not yet completed.
func (w *Workload) RemainingBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalBytes - w.completedBytes
}

// TotalBytes is the sum of sizes of all registered candidates. Fixed once
// discovery completes; later transitions never change it.
func (w *Workload) TotalBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalBytes
}

// Completed returns a copy of the completed buffer.
func (w *Workload) Completed() []candidate.File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]candidate.File(nil), w.completed...)
}

// Failed returns a copy of the failure records.
func (w *Workload) Failed() []Failure {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Failure(nil), w.failed...)
}

// Skipped returns a copy of the skip records.
func (w *Workload) Skipped() []discover.Skip {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]discover.Skip(nil), w.skipped...)
}

// Snapshot captures current counts for logging and metrics.
func (w *Workload) Snapshot() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Pending:        len(w.pending),
		InProgress:     len(w.inProgress),
		Completed:      len(w.completed),
		Failed:         len(w.failed),
		Skipped:        len(w.skipped),
		TotalBytes:     w.totalBytes,
		RemainingBytes: w.totalBytes - w.completedBytes,
	}
}

// ResetProgress re-seeds the pending queue from the full discovered set,
// in discovery order, and clears in-progress, completed, and failed.
// Used to restart a transfer attempt without re-discovering. Skip records
// and the byte total are kept.
func (w *Workload) ResetProgress() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append([]candidate.File(nil), w.discovered...)
	w.inProgress = make(map[string]candidate.File)
	w.completed = nil
	w.failed = nil
	w.completedBytes = 0
}

// ResetState clears every buffer and the byte total, for a full restart
// including re-discovery.
func (w *Workload) ResetState() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.discovered = nil
	w.pending = nil
	w.inProgress = make(map[string]candidate.File)
	w.completed = nil
	w.failed = nil
	w.skipped = nil
	w.totalBytes = 0
	w.completedBytes = 0
}
