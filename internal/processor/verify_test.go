//go:build unix

package processor

import (
	"testing"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

func TestNativeVerifyProcessorConfirmsAndReattachesMetadata(t *testing.T) {
	bgverify := writeFakeBinary(t, "bgverify", "cat <<'EOF'\n/tmp/a.bin: 41\nEOF\n")

	p := NewNativeVerifyProcessor(bgverify, zerolog.Nop())
	_ = p.AddJob(job.VerifyJob{
		Terms: []string{"41"},
		Candidates: []job.Candidate{
			{Path: "/tmp/a.bin", Metadata: ",size=10"},
			{Path: "/tmp/b.bin", Metadata: ",size=20"},
		},
	})

	if err := p.Do(); err != nil {
		t.Fatalf("Do: %v", err)
	}

	results := p.GetResults()
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if r.Count != 2 {
		t.Fatalf("Count = %d, want 2 (batch size)", r.Count)
	}
	if len(r.Candidates) != 1 || r.Candidates[0].Path != "/tmp/a.bin" {
		t.Fatalf("confirmed = %+v", r.Candidates)
	}
	if r.Candidates[0].Metadata != ",size=10" {
		t.Fatalf("metadata not reattached: %q", r.Candidates[0].Metadata)
	}
}

func TestYaraVerifyProcessorGroupsMatchesAndSanitizesRuleNames(t *testing.T) {
	yara := writeFakeBinary(t, "yara", "cat <<'EOF'\nrule;one /tmp/a.bin\nrule,two /tmp/a.bin\nEOF\n")

	p := NewYaraVerifyProcessor(yara, "/tmp/rules.yar", zerolog.Nop())
	_ = p.AddJob(job.VerifyJob{
		Terms:      []string{"41"},
		Candidates: []job.Candidate{{Path: "/tmp/a.bin"}, {Path: "/tmp/b.bin"}},
	})

	if err := p.Do(); err != nil {
		t.Fatalf("Do: %v", err)
	}

	results := p.GetResults()
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if len(r.Candidates) != 1 {
		t.Fatalf("confirmed = %+v", r.Candidates)
	}
	want := ",YARA_MATCHES=rule_one;rule_two"
	if r.Candidates[0].Metadata != want {
		t.Fatalf("metadata = %q, want %q", r.Candidates[0].Metadata, want)
	}
}
