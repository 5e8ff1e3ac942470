// Package orchestrator implements the search entry point: it wires a
// Job Manager, a Dispatcher, and N search/verify engines together,
// drains confirmed results to a caller-supplied callback, and applies
// the search/verify throttling policy.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/ivoronin/biggrep/internal/dispatcher"
	"github.com/ivoronin/biggrep/internal/job"
	"github.com/ivoronin/biggrep/internal/manager"
	"github.com/ivoronin/biggrep/internal/processor"
	"github.com/rs/zerolog"
)

// mainLoopSleep is the short sleep the orchestrator takes when a pass
// drained no completed results.
const mainLoopSleep = 10 * time.Millisecond

// throttleHysteresis is the backlog-below-threshold margin required to
// resume the search stage after a throttle halt.
const throttleHysteresis = 500

// Status is a snapshot of pipeline progress, passed to the status
// callback. It is forced through on the first call and thereafter only
// when a counter changed.
type Status struct {
	CandidateCount     int
	VerifyCheckedCount int
	VerifiedCount      int
	SearchedCount      int
	TotalIndexFiles    int
}

// Options configures one Search run.
type Options struct {
	Terms      []string // already-normalized hex terms
	IndexFiles []string

	Verify         bool
	Filters        []job.FilterPredicate
	Workers        int
	CandidateLimit int
	Throttle       int

	BgparsePath   string
	BgverifyPath  string
	YaraPath      string
	YaraRulesFile string // non-empty selects the YARA verifier
	Debug         bool

	ResultCallback func(path, metadata string)
	StatusCallback func(Status)

	Logger zerolog.Logger
}

// Exit codes returned by Search.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitCandidateLimit = 2
)

// Search runs the orchestrated search/verify pipeline to completion (or
// until ctx is canceled, a candidate limit is reached, or the dispatcher
// dies) and returns the process exit code.
func Search(ctx context.Context, opts Options) (int, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	mgr := manager.New(opts.Verify, opts.Filters, opts.CandidateLimit, opts.Logger)
	disp := dispatcher.New(mgr, opts.Logger)

	searchEngines := make([]*processor.Engine, 0, workers)
	for i := 0; i < workers; i++ {
		sp := processor.NewSearchProcessor(opts.BgparsePath, opts.Debug, opts.Logger)
		e := processor.NewEngine(sp, opts.Logger)
		searchEngines = append(searchEngines, e)
		disp.AddEngine(e)
	}

	var verifyEngines []*processor.Engine
	if opts.Verify {
		verifyEngines = make([]*processor.Engine, 0, workers)
		for i := 0; i < workers; i++ {
			vp := newVerifyProcessor(opts)
			e := processor.NewEngine(vp, opts.Logger)
			verifyEngines = append(verifyEngines, e)
			disp.AddEngine(e)
		}
		// All verify engines start paused except one, reserving
		// capacity for the search stage until backlog builds up.
		for i, e := range verifyEngines {
			if i != 0 {
				e.Pause()
			}
		}
		// Reserve one search slot for verification once there's more
		// than one worker to spare.
		if workers > 1 {
			searchEngines[len(searchEngines)-1].Pause()
		}
	}

	for _, idx := range opts.IndexFiles {
		mgr.AddJob(opts.Terms, idx)
	}

	disp.Start()

	parsingHalted := false
	enabledVerifiers := 0
	var lastStatus Status
	forceStatus := true

	for {
		drainedAny := drainCompleted(mgr, opts.ResultCallback)

		status := Status{
			CandidateCount:     mgr.CandidateCount(),
			VerifyCheckedCount: mgr.VerifyCheckedCount(),
			VerifiedCount:      mgr.VerifiedCount(),
			SearchedCount:      mgr.SearchedCount(),
			TotalIndexFiles:    len(opts.IndexFiles),
		}
		if opts.StatusCallback != nil && (forceStatus || status != lastStatus) {
			opts.StatusCallback(status)
			lastStatus = status
			forceStatus = false
		}

		if mgr.CandidateLimitReached() {
			disp.Stop()
			return ExitCandidateLimit, nil
		}

		if disp.Crashed() {
			disp.Stop()
			return ExitFailure, errors.New("orchestrator: dispatcher died")
		}

		if opts.Verify {
			parsingHalted, enabledVerifiers = applyThrottle(
				mgr, searchEngines, verifyEngines, workers, opts.Throttle, parsingHalted, enabledVerifiers,
			)
		}

		select {
		case <-ctx.Done():
			disp.Stop()
			return ExitFailure, ctx.Err()
		default:
		}

		if mgr.Done() {
			break
		}

		if !drainedAny {
			time.Sleep(mainLoopSleep)
		}
	}

	disp.Stop()
	return ExitOK, nil
}

func newVerifyProcessor(opts Options) processor.Processor {
	if opts.YaraRulesFile != "" {
		return processor.NewYaraVerifyProcessor(opts.YaraPath, opts.YaraRulesFile, opts.Logger)
	}
	return processor.NewNativeVerifyProcessor(opts.BgverifyPath, opts.Logger)
}

func drainCompleted(mgr *manager.Manager, callback func(path, metadata string)) bool {
	drained := false
	for {
		r, ok := mgr.GetCompletedJob()
		if !ok {
			return drained
		}
		drained = true
		if callback == nil {
			continue
		}
		for _, c := range r.Candidates {
			callback(c.Path, c.Metadata)
		}
	}
}

// applyThrottle implements the search/verify backpressure policy. The
// halt/resume-on-backlog transitions only apply when throttle is
// positive; the progressive verify-engine scale-up in the default case
// always runs whenever verify is enabled, independent of throttle.
// enabledVerifiers tracks how many verify engines are currently
// intended to be active, so repeated calls only resume the delta
// rather than re-resuming engines that are already running.
// Returns the updated parsingHalted state and enabledVerifiers count.
func applyThrottle(
	mgr *manager.Manager, searchEngines, verifyEngines []*processor.Engine,
	workers, throttle int, parsingHalted bool, enabledVerifiers int,
) (bool, int) {
	backlog := mgr.CandidateCount() - mgr.VerifyCheckedCount()

	switch {
	case throttle > 0 && !parsingHalted && backlog > throttle:
		pauseAll(searchEngines)
		resumeAll(verifyEngines)
		return true, len(verifyEngines)
	case throttle > 0 && parsingHalted && backlog < throttle-throttleHysteresis:
		pauseAll(verifyEngines)
		resumeAll(searchEngines)
		resumeUpTo(verifyEngines, 1)
		return false, 1
	default:
		targetVerifiers := workers - mgr.UnfinishedSearchJobs()
		if targetVerifiers > 0 && targetVerifiers > enabledVerifiers {
			resumeUpTo(verifyEngines, targetVerifiers)
			enabledVerifiers = targetVerifiers
		}
		return parsingHalted, enabledVerifiers
	}
}

func pauseAll(engines []*processor.Engine) {
	for _, e := range engines {
		e.Pause()
	}
}

func resumeAll(engines []*processor.Engine) {
	for _, e := range engines {
		e.Resume()
	}
}

// resumeUpTo resumes the first n engines (by index), leaving the rest
// untouched. It is idempotent: engines already running are unaffected.
func resumeUpTo(engines []*processor.Engine, n int) {
	if n > len(engines) {
		n = len(engines)
	}
	for i := 0; i < n; i++ {
		engines[i].Resume()
	}
}
