// Package processor implements the units of work the search pipeline
// executes: invoking the native parser/verifier (or YARA) collaborators
// on a single job, and the long-lived engine that drives a processor in
// its own goroutine.
//
// Following the teacher's per-stage worker-pool idiom
// (internal/verifier.Run's fixed goroutine pool), a Processor is a small
// stateful object with exactly one pending job slot; an Engine is the
// concurrency wrapper around it.
package processor

import (
	"errors"
	"sync"

	"github.com/ivoronin/biggrep/internal/job"
)

// ErrNoWork is returned by Do when no job is pending.
var ErrNoWork = errors.New("processor: no pending job")

// Processor executes one kind of job (search or verify).
type Processor interface {
	// Kind identifies which job-type queue this processor pulls from.
	Kind() job.Kind
	// NeedsJob reports whether the single pending-job slot is empty.
	NeedsJob() bool
	// AddJob enqueues j (a job.SearchJob or job.VerifyJob) into the
	// pending slot. Returns an error if the slot is already occupied.
	AddJob(j any) error
	// Do pops the pending job and executes it, appending a ResultJob to
	// the internal done list. Returns ErrNoWork if nothing is pending.
	Do() error
	// GetResults drains and returns all completed results.
	GetResults() []job.ResultJob
	// Clean releases any resources held by the processor.
	Clean()
}

// base implements the pending/done bookkeeping shared by every
// Processor implementation, serialized under one mutex.
type base struct {
	mu      sync.Mutex
	pending any
	has     bool
	done    []job.ResultJob
}

func (b *base) NeedsJob() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.has
}

func (b *base) AddJob(j any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.has {
		return errors.New("processor: pending job slot occupied")
	}
	b.pending = j
	b.has = true
	return nil
}

func (b *base) takeJob() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has {
		return nil, false
	}
	j := b.pending
	b.pending = nil
	b.has = false
	return j, true
}

func (b *base) appendResult(r job.ResultJob) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = append(b.done, r)
}

func (b *base) GetResults() []job.ResultJob {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.done) == 0 {
		return nil
	}
	r := b.done
	b.done = nil
	return r
}

func (b *base) Clean() {}
