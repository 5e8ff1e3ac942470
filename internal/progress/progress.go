package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Bar wraps progressbar with enabled/disabled handling, driven from the
// search/verify pipeline's Status snapshots rather than a generic byte
// or item count. All methods are no-ops when disabled (--metrics mode
// uses StatusLine instead, so the two never run concurrently).
type Bar struct {
	bar *progressbar.ProgressBar
}

// New creates a progress indicator.
// If enabled=false, returns a Bar where all methods are no-ops.
// Use total=-1 for spinner mode (the search command has no fixed end
// count to bar against), or total>0 for determinate progress.
func New(enabled bool, total int64) *Bar {
	if !enabled {
		return &Bar{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(false),
		)
		return &Bar{bar: progressbar.NewOptions(-1, opts...)}
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	return &Bar{bar: progressbar.NewOptions64(total, opts...)}
}

// NewSpinner creates a Bar in spinner mode, for the search command's
// indeterminate candidate/verify tally display.
func NewSpinner(enabled bool) *Bar {
	return New(enabled, -1)
}

// Set sets the progress bar to a specific value.
func (b *Bar) Set(n uint64) {
	if b.bar != nil {
		_ = b.bar.Set64(int64(n))
	}
}

// Describe updates the spinner's description with the current
// search/verify tally, rendered by the caller's fmt.Stringer (see
// searchSummary in cmd/biggrep).
func (b *Bar) Describe(s fmt.Stringer) {
	if b.bar != nil {
		b.bar.Describe(s.String())
	}
}

// Finish stops the spinner and prints the final search/verify tally.
func (b *Bar) Finish(s fmt.Stringer) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr, "✔ search complete: "+s.String())
	}
}
