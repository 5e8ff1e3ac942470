package progress

import (
	"fmt"
	"io"
)

// StatusLine renders the "--metrics" machine-readable progress line
// described in spec.md §6:
//
//	Search:<cc> <pct>% Verify:<vf>/<cc> <pct>%
//
// written to the given writer with a leading carriage return and no
// trailing newline, padded to overwrite any trailing characters left
// by the previous line.
type StatusLine struct {
	w        io.Writer
	lastLen  int
	disabled bool
}

// NewStatusLine creates a status line writer. If enabled=false, Write
// is a no-op.
func NewStatusLine(w io.Writer, enabled bool) *StatusLine {
	return &StatusLine{w: w, disabled: !enabled}
}

// Write formats and emits one status line update.
func (s *StatusLine) Write(candidateCount, verifiedCount, verifyCheckedCount, totalIndexFiles, searchedCount int) {
	if s.disabled {
		return
	}

	searchPct := percent(searchedCount, totalIndexFiles)
	verifyPct := percent(verifyCheckedCount, candidateCount)

	line := fmt.Sprintf("Search:%d %d%% Verify:%d/%d %d%%",
		candidateCount, searchPct, verifiedCount, candidateCount, verifyPct)

	padded := line
	if pad := s.lastLen - len(line); pad > 0 {
		padded += spaces(pad)
	}
	s.lastLen = len(line)

	fmt.Fprintf(s.w, "\r%s", padded)
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
