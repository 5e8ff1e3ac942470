package processor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

// fakeProcessor is a minimal Processor used to exercise Engine behavior
// without shelling out to a real subprocess.
type fakeProcessor struct {
	base
	kind   job.Kind
	doCall atomic.Int64
	panic  bool
}

func (f *fakeProcessor) Kind() job.Kind { return f.kind }

func (f *fakeProcessor) Do() error {
	j, ok := f.takeJob()
	if !ok {
		return ErrNoWork
	}
	if f.panic {
		panic("boom")
	}
	f.doCall.Add(1)
	f.appendResult(job.ResultJob{State: job.SearchDone, Terms: j.(job.SearchJob).Terms, Count: 1})
	return nil
}

func TestEnginePausedDoesNotCallDo(t *testing.T) {
	fp := &fakeProcessor{kind: job.Search}
	e := NewEngine(fp, zerolog.Nop())
	e.Pause()

	go e.Run()
	time.Sleep(30 * time.Millisecond)
	e.Stop()
	<-e.Done()

	if fp.doCall.Load() != 0 {
		t.Errorf("expected no Do() calls while paused, got %d", fp.doCall.Load())
	}
}

func TestEngineRunsJobsUntilStopped(t *testing.T) {
	fp := &fakeProcessor{kind: job.Search}
	e := NewEngine(fp, zerolog.Nop())

	go e.Run()
	_ = fp.AddJob(job.SearchJob{Terms: []string{"41"}, IndexPath: "/tmp/x.bgi"})

	deadline := time.After(time.Second)
	for {
		results := fp.GetResults()
		if len(results) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for engine to process job")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	e.Stop()
	<-e.Done()
}

func TestEngineRecoversFromPanic(t *testing.T) {
	fp := &fakeProcessor{kind: job.Search, panic: true}
	e := NewEngine(fp, zerolog.Nop())

	go e.Run()
	_ = fp.AddJob(job.SearchJob{Terms: []string{"41"}, IndexPath: "/tmp/x.bgi"})

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for engine to crash")
	}

	if !e.Crashed() {
		t.Error("expected Crashed() to be true after panic")
	}
}
