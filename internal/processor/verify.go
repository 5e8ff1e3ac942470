package processor

import (
	"bytes"
	"os/exec"
	"strings"
	"time"

	"github.com/ivoronin/biggrep/internal/job"
	"github.com/rs/zerolog"
)

// NativeVerifyProcessor invokes the native verifier binary (bgverify) on
// a single VerifyJob.
type NativeVerifyProcessor struct {
	base
	bgverifyPath string
	logger       zerolog.Logger
}

// NewNativeVerifyProcessor creates a NativeVerifyProcessor invoking the
// verifier at bgverifyPath.
func NewNativeVerifyProcessor(bgverifyPath string, logger zerolog.Logger) *NativeVerifyProcessor {
	return &NativeVerifyProcessor{bgverifyPath: bgverifyPath, logger: logger}
}

func (p *NativeVerifyProcessor) Kind() job.Kind { return job.Verify }

// Do invokes "bgverify <term> <term>...", writes candidate paths
// newline-separated on stdin, and reads "<path>: <matches>" lines back.
func (p *NativeVerifyProcessor) Do() error {
	j, ok := p.takeJob()
	if !ok {
		return ErrNoWork
	}
	vj := j.(job.VerifyJob)

	start := time.Now()

	cmd := exec.Command(p.bgverifyPath, vj.Terms...)

	var stdin bytes.Buffer
	for _, c := range vj.Candidates {
		stdin.WriteString(c.Path)
		stdin.WriteByte('\n')
	}
	cmd.Stdin = &stdin

	stdout, stderr := newSpoolBuffer(), newSpoolBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr

	runErr := cmd.Run()

	stderrLines, _ := stderr.Lines()
	for _, line := range stderrLines {
		switch {
		case strings.Contains(line, " (E) "):
			p.logger.Error().Msg(line)
		case strings.Contains(line, " (W) "):
			p.logger.Warn().Msg(line)
		default:
			p.logger.Debug().Msg(line)
		}
	}
	if runErr != nil {
		p.logger.Warn().Err(runErr).Msg("bgverify exited non-zero")
	}

	lines, err := stdout.Lines()
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(vj.Candidates))
	for _, c := range vj.Candidates {
		metadata[c.Path] = c.Metadata
	}

	var confirmed []job.Candidate
	for _, line := range lines {
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		path := line[:idx]
		confirmed = append(confirmed, job.Candidate{Path: path, Metadata: metadata[path]})
	}

	p.appendResult(job.ResultJob{
		State:      job.VerifyDone,
		Terms:      vj.Terms,
		Candidates: confirmed,
		Count:      len(vj.Candidates),
		Duration:   time.Since(start),
	})
	return nil
}

// YaraVerifyProcessor confirms candidates using a YARA rule file as an
// alternative to the native verifier.
type YaraVerifyProcessor struct {
	base
	yaraPath  string
	rulesFile string
	logger    zerolog.Logger
}

// NewYaraVerifyProcessor creates a YaraVerifyProcessor invoking yara with
// rulesFile against each job's candidate paths.
func NewYaraVerifyProcessor(yaraPath, rulesFile string, logger zerolog.Logger) *YaraVerifyProcessor {
	return &YaraVerifyProcessor{yaraPath: yaraPath, rulesFile: rulesFile, logger: logger}
}

func (p *YaraVerifyProcessor) Kind() job.Kind { return job.Verify }

// Do invokes "yara <rulesfile> <paths...>" and groups "<rulename> <path>"
// matches per path, appending a YARA_MATCHES=<rule;rule...> annotation.
func (p *YaraVerifyProcessor) Do() error {
	j, ok := p.takeJob()
	if !ok {
		return ErrNoWork
	}
	vj := j.(job.VerifyJob)

	start := time.Now()

	args := make([]string, 0, len(vj.Candidates)+1)
	args = append(args, p.rulesFile)
	for _, c := range vj.Candidates {
		args = append(args, c.Path)
	}

	cmd := exec.Command(p.yaraPath, args...)
	stdout, stderr := newSpoolBuffer(), newSpoolBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr

	runErr := cmd.Run()

	stderrLines, _ := stderr.Lines()
	for _, line := range stderrLines {
		p.logger.Warn().Msg(line)
	}
	if runErr != nil {
		p.logger.Warn().Err(runErr).Msg("yara exited non-zero")
	}

	lines, err := stdout.Lines()
	if err != nil {
		return err
	}

	rulesByPath := make(map[string][]string)
	var order []string
	for _, line := range lines {
		rule, path, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if _, seen := rulesByPath[path]; !seen {
			order = append(order, path)
		}
		rulesByPath[path] = append(rulesByPath[path], rule)
	}

	metadata := make(map[string]string, len(vj.Candidates))
	for _, c := range vj.Candidates {
		metadata[c.Path] = c.Metadata
	}

	confirmed := make([]job.Candidate, 0, len(order))
	for _, path := range order {
		cleaned := make([]string, len(rulesByPath[path]))
		for i, r := range rulesByPath[path] {
			r = strings.ReplaceAll(r, ";", "_")
			r = strings.ReplaceAll(r, ",", "_")
			cleaned[i] = r
		}
		annotation := "YARA_MATCHES=" + strings.Join(cleaned, ";")
		md := metadata[path]
		if md == "" {
			md = "," + annotation
		} else {
			md = md + "," + annotation
		}
		confirmed = append(confirmed, job.Candidate{Path: path, Metadata: md})
	}

	p.appendResult(job.ResultJob{
		State:      job.VerifyDone,
		Terms:      vj.Terms,
		Candidates: confirmed,
		Count:      len(vj.Candidates),
		Duration:   time.Since(start),
	})
	return nil
}
