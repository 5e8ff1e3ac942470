package processor

import (
	"os/exec"
	"time"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

// SearchProcessor invokes the native index-parser binary (bgparse) on a
// single SearchJob.
type SearchProcessor struct {
	base
	bgparsePath string
	debug       bool
	logger      zerolog.Logger
}

// NewSearchProcessor creates a SearchProcessor invoking the parser at
// bgparsePath. debug forwards -d to bgparse. bgparse always returns
// metadata; --no-metadata is a display-time filter applied to results,
// not a flag forwarded to the parser.
func NewSearchProcessor(bgparsePath string, debug bool, logger zerolog.Logger) *SearchProcessor {
	return &SearchProcessor{bgparsePath: bgparsePath, debug: debug, logger: logger}
}

func (p *SearchProcessor) Kind() job.Kind { return job.Search }

// Do invokes "bgparse -s <term> [-s <term>...] [-d] <index.bgi>" and
// parses each stdout line into a Candidate.
func (p *SearchProcessor) Do() error {
	j, ok := p.takeJob()
	if !ok {
		return ErrNoWork
	}
	sj := j.(job.SearchJob)

	start := time.Now()

	args := make([]string, 0, len(sj.Terms)*2+2)
	for _, t := range sj.Terms {
		args = append(args, "-s", t)
	}
	if p.debug {
		args = append(args, "-d")
	}
	args = append(args, sj.IndexPath)

	cmd := exec.Command(p.bgparsePath, args...)
	stdout, stderr := newSpoolBuffer(), newSpoolBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr

	runErr := cmd.Run()

	stderrLines, _ := stderr.Lines()
	for _, line := range stderrLines {
		if runErr != nil {
			p.logger.Warn().Str("index", sj.IndexPath).Msg(line)
		} else {
			p.logger.Debug().Str("index", sj.IndexPath).Msg(line)
		}
	}
	if runErr != nil {
		p.logger.Warn().Err(runErr).Str("index", sj.IndexPath).Msg("bgparse exited non-zero")
	}

	lines, err := stdout.Lines()
	if err != nil {
		return err
	}

	candidates := make([]job.Candidate, 0, len(lines))
	for _, line := range lines {
		candidates = append(candidates, job.ParseCandidateLine(line))
	}

	p.appendResult(job.ResultJob{
		State:      job.SearchDone,
		Terms:      sj.Terms,
		Candidates: candidates,
		Count:      len(candidates),
		Duration:   time.Since(start),
	})
	return nil
}
