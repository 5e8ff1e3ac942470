// Package manager implements the Job Manager: typed work queues plus a
// completed-results queue, per-job-kind dispatch, candidate counting,
// metadata filtering, and global-limit enforcement.
package manager

import (
	"sync"
	"time"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

// Manager holds the search and verify job queues, the completed-results
// queue, and the progress counters and limit flags the pipeline needs.
// All access is serialized under one mutex, matching the teacher's
// single-mutex-per-shared-structure discipline.
type Manager struct {
	mu sync.Mutex

	searchJobs []job.SearchJob
	verifyJobs []job.VerifyJob
	completed  []job.ResultJob

	verifyEnabled  bool
	filters        []job.FilterPredicate
	candidateLimit int

	totalSearchJobs int
	searchedCount   int
	searchDuration  time.Duration

	candidateCount        int
	verifyEnqueuedCount   int
	verifyCheckedCount    int
	verifiedCount         int
	candidateLimitReached bool

	logger zerolog.Logger
}

// New creates a Manager. candidateLimit <= 0 disables the limit.
func New(verifyEnabled bool, filters []job.FilterPredicate, candidateLimit int, logger zerolog.Logger) *Manager {
	return &Manager{
		verifyEnabled:  verifyEnabled,
		filters:        filters,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// AddJob enqueues a SearchJob for the given terms and index file.
func (m *Manager) AddJob(terms []string, indexPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchJobs = append(m.searchJobs, job.SearchJob{Terms: terms, IndexPath: indexPath})
	m.totalSearchJobs++
}

// GetJob returns one job appropriate to kind, or ok=false if none is
// available. LIFO ordering is fine; no fairness guarantee is required.
func (m *Manager) GetJob(kind job.Kind) (j any, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case job.Search:
		n := len(m.searchJobs)
		if n == 0 {
			return nil, false
		}
		sj := m.searchJobs[n-1]
		m.searchJobs = m.searchJobs[:n-1]
		return sj, true
	case job.Verify:
		n := len(m.verifyJobs)
		if n == 0 {
			return nil, false
		}
		vj := m.verifyJobs[n-1]
		m.verifyJobs = m.verifyJobs[:n-1]
		return vj, true
	default:
		return nil, false
	}
}

// PutJob integrates a completed ResultJob into the manager's state.
func (m *Manager) PutJob(r job.ResultJob) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.State {
	case job.SearchDone:
		m.putSearchDone(r)
	case job.VerifyDone:
		m.putVerifyDone(r)
	}
}

func (m *Manager) putSearchDone(r job.ResultJob) {
	m.searchedCount++
	m.searchDuration += r.Duration

	passed := make([]job.Candidate, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		pass, missing := job.EvaluateAll(m.filters, c.Metadata)
		if !pass {
			continue
		}
		if len(missing) > 0 {
			c.Metadata = job.AppendMissingAnnotation(c.Metadata, missing)
		}
		passed = append(passed, c)
	}

	m.candidateCount += len(passed)
	if m.candidateLimit > 0 && m.candidateCount > m.candidateLimit {
		m.candidateLimitReached = true
	}

	if len(passed) == 0 {
		return
	}

	if m.verifyEnabled && !m.candidateLimitReached {
		m.verifyJobs = append(m.verifyJobs, job.VerifyJob{Terms: r.Terms, Candidates: passed})
		m.verifyEnqueuedCount += len(passed)
		return
	}

	m.completed = append(m.completed, job.ResultJob{
		State:      job.SearchDone,
		Terms:      r.Terms,
		Candidates: passed,
		Count:      len(passed),
	})
}

func (m *Manager) putVerifyDone(r job.ResultJob) {
	if r.Count <= 0 {
		return
	}
	m.verifyCheckedCount += r.Count
	m.verifiedCount += len(r.Candidates)
	m.completed = append(m.completed, r)
}

// GetCompletedJob pops one completed ResultJob, or ok=false if the queue
// is empty.
func (m *Manager) GetCompletedJob() (r job.ResultJob, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.completed) == 0 {
		return job.ResultJob{}, false
	}
	r = m.completed[0]
	m.completed = m.completed[1:]
	return r, true
}

// UnfinishedSearchJobs returns the number of SearchJobs not completed
// yet (queued + in-flight, by construction).
func (m *Manager) UnfinishedSearchJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalSearchJobs - m.searchedCount
}

// RemainingVerifyWork returns the number of candidates enqueued for
// verification that have not yet been reported done (queued + in-flight).
func (m *Manager) RemainingVerifyWork() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyEnqueuedCount - m.verifyCheckedCount
}

// CompletedBacklog returns the number of completed results not yet
// drained by GetCompletedJob.
func (m *Manager) CompletedBacklog() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completed)
}

// Done reports whether the pipeline has fully drained: no unfinished
// search jobs, no outstanding verify work, and no completed backlog.
func (m *Manager) Done() bool {
	return m.UnfinishedSearchJobs() == 0 && m.RemainingVerifyWork() == 0 && m.CompletedBacklog() == 0
}

// CandidateCount returns the total number of candidates that passed the
// filter, across all search results processed so far.
func (m *Manager) CandidateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidateCount
}

// VerifyCheckedCount returns the total number of candidates a verify
// stage has finished checking.
func (m *Manager) VerifyCheckedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCheckedCount
}

// VerifiedCount returns the total number of candidates confirmed by a
// verify stage.
func (m *Manager) VerifiedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifiedCount
}

// SearchedCount returns the number of SearchJobs that have completed.
func (m *Manager) SearchedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchedCount
}

// CandidateLimitReached reports whether candidate_count has exceeded a
// positive candidate_limit.
func (m *Manager) CandidateLimitReached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidateLimitReached
}
