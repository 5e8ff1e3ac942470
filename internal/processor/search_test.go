//go:build unix

package processor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

func writeFakeBinary(t *testing.T, name, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestSearchProcessorParsesCandidates(t *testing.T) {
	bgparse := writeFakeBinary(t, "bgparse", "echo '/tmp/a.bin,size=10'\necho '/tmp/b.bin'\n")

	p := NewSearchProcessor(bgparse, false, zerolog.Nop())
	if !p.NeedsJob() {
		t.Fatal("expected NeedsJob() to be true before any job is added")
	}
	if err := p.AddJob(job.SearchJob{Terms: []string{"41"}, IndexPath: "/tmp/idx.bgi"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if p.NeedsJob() {
		t.Fatal("expected NeedsJob() to be false with a pending job")
	}

	if err := p.Do(); err != nil {
		t.Fatalf("Do: %v", err)
	}

	results := p.GetResults()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.State != job.SearchDone || r.Count != 2 {
		t.Fatalf("got %+v", r)
	}
	if r.Candidates[0].Path != "/tmp/a.bin" || r.Candidates[0].Metadata != ",size=10" {
		t.Fatalf("candidate[0] = %+v", r.Candidates[0])
	}
	if r.Candidates[1].Path != "/tmp/b.bin" || r.Candidates[1].Metadata != "" {
		t.Fatalf("candidate[1] = %+v", r.Candidates[1])
	}
}

func TestSearchProcessorNoWorkWithoutJob(t *testing.T) {
	p := NewSearchProcessor("true", false, zerolog.Nop())
	if err := p.Do(); err != ErrNoWork {
		t.Fatalf("Do() = %v, want ErrNoWork", err)
	}
}

func TestSearchProcessorSurvivesNonzeroExit(t *testing.T) {
	bgparse := writeFakeBinary(t, "bgparse", "echo 'boom' 1>&2\nexit 1\n")

	p := NewSearchProcessor(bgparse, false, zerolog.Nop())
	_ = p.AddJob(job.SearchJob{Terms: []string{"41"}, IndexPath: "/tmp/idx.bgi"})

	if err := p.Do(); err != nil {
		t.Fatalf("Do: %v", err)
	}
	results := p.GetResults()
	if len(results) != 1 || results[0].Count != 0 {
		t.Fatalf("got %+v", results)
	}
}

func TestSearchProcessorNeverForwardsNoMetadataFlag(t *testing.T) {
	// bgparse has no -M flag (see the bgparse protocol); --no-metadata
	// is a display-time filter applied by the caller, not an argument
	// forwarded to the parser. Capture argv and assert -M never appears.
	bgparse := writeFakeBinary(t, "bgparse", "printf '%s\\n' \"$@\" > \"$(dirname \"$0\")/argv.txt\"\n")

	p := NewSearchProcessor(bgparse, false, zerolog.Nop())
	if err := p.AddJob(job.SearchJob{Terms: []string{"41"}, IndexPath: "/tmp/idx.bgi"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := p.Do(); err != nil {
		t.Fatalf("Do: %v", err)
	}

	argv, err := os.ReadFile(filepath.Join(filepath.Dir(bgparse), "argv.txt"))
	if err != nil {
		t.Fatalf("read argv: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(argv)), "\n") {
		if line == "-M" {
			t.Fatalf("bgparse invoked with -M, argv = %q", argv)
		}
	}
}
