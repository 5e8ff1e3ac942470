package job

import "strings"

// ParseCandidateLine splits one bgparse stdout line into a Candidate: the
// path is everything before the first comma, the metadata is the
// remainder (including the leading comma, if any).
func ParseCandidateLine(line string) Candidate {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return Candidate{Path: line}
	}
	return Candidate{Path: line[:idx], Metadata: line[idx:]}
}
