package manager

import (
	"testing"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

func TestManagerNoVerifyPushesDirectlyToCompleted(t *testing.T) {
	m := New(false, nil, 0, zerolog.Nop())
	m.AddJob([]string{"41"}, "/tmp/a.bgi")

	sj, ok := m.GetJob(job.Search)
	if !ok {
		t.Fatal("expected a search job")
	}
	if sj.(job.SearchJob).IndexPath != "/tmp/a.bgi" {
		t.Fatalf("got %+v", sj)
	}

	m.PutJob(job.ResultJob{
		State:      job.SearchDone,
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}},
		Count:      1,
	})

	if m.CandidateCount() != 1 {
		t.Fatalf("CandidateCount() = %d, want 1", m.CandidateCount())
	}

	r, ok := m.GetCompletedJob()
	if !ok {
		t.Fatal("expected a completed job")
	}
	if len(r.Candidates) != 1 || r.Candidates[0].Path != "/tmp/a.bin" {
		t.Fatalf("got %+v", r)
	}
	if !m.Done() {
		t.Error("expected manager to be Done()")
	}
}

func TestManagerVerifyEnabledEnqueuesVerifyJob(t *testing.T) {
	m := New(true, nil, 0, zerolog.Nop())
	m.AddJob([]string{"41"}, "/tmp/a.bgi")
	_, _ = m.GetJob(job.Search)

	m.PutJob(job.ResultJob{
		State:      job.SearchDone,
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}, {Path: "/tmp/b.bin"}},
	})

	if m.Done() {
		t.Fatal("manager should not be Done() with outstanding verify work")
	}

	vjAny, ok := m.GetJob(job.Verify)
	if !ok {
		t.Fatal("expected a verify job")
	}
	vj := vjAny.(job.VerifyJob)
	if len(vj.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(vj.Candidates))
	}

	m.PutJob(job.ResultJob{
		State:      job.VerifyDone,
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}},
		Count:      2,
	})

	if m.VerifyCheckedCount() != 2 || m.VerifiedCount() != 1 {
		t.Fatalf("VerifyCheckedCount=%d VerifiedCount=%d", m.VerifyCheckedCount(), m.VerifiedCount())
	}
	if m.Done() {
		t.Fatal("manager should not be Done() with an undrained completed result")
	}
	r, ok := m.GetCompletedJob()
	if !ok || len(r.Candidates) != 1 || r.Candidates[0].Path != "/tmp/a.bin" {
		t.Fatalf("completed = %+v, ok=%v", r, ok)
	}
	if !m.Done() {
		t.Error("expected manager to be Done() after verify completes")
	}
}

func TestManagerCandidateLimit(t *testing.T) {
	m := New(true, nil, 1, zerolog.Nop())
	m.AddJob([]string{"78"}, "/tmp/a.bgi")
	m.AddJob([]string{"78"}, "/tmp/b.bgi")
	_, _ = m.GetJob(job.Search)
	_, _ = m.GetJob(job.Search)

	m.PutJob(job.ResultJob{
		State:      job.SearchDone,
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}, {Path: "/tmp/b.bin"}},
	})

	if !m.CandidateLimitReached() {
		t.Fatal("expected candidate limit to be reached")
	}

	// Once the limit is reached, no new VerifyJobs are enqueued; the
	// batch instead lands directly on the completed queue.
	if _, ok := m.GetJob(job.Verify); ok {
		t.Fatal("expected no verify job to be enqueued after limit reached")
	}

	m.PutJob(job.ResultJob{
		State:      job.SearchDone,
		Candidates: []job.Candidate{{Path: "/tmp/c.bin"}},
	})
	if _, ok := m.GetJob(job.Verify); ok {
		t.Fatal("expected no verify job even for a later batch")
	}
}

func TestManagerFilterAnnotatesMissingKey(t *testing.T) {
	p, err := job.ParseFilter("size>=1024")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	m := New(false, []job.FilterPredicate{p}, 0, zerolog.Nop())
	m.AddJob([]string{"41"}, "/tmp/a.bgi")
	_, _ = m.GetJob(job.Search)

	m.PutJob(job.ResultJob{
		State:      job.SearchDone,
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}},
	})

	r, ok := m.GetCompletedJob()
	if !ok {
		t.Fatal("expected a completed job")
	}
	if r.Candidates[0].Metadata == "" {
		t.Error("expected missing-key annotation on metadata")
	}
}
