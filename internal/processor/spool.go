package processor

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// spoolThreshold bounds how much subprocess output is kept in memory
// before spilling to a temp file. Large candidate lists can exceed 1 GiB,
// so capture spills to disk rather than growing an unbounded in-memory
// buffer. Lines still reads the whole output back into one in-memory
// slice.
const spoolThreshold = 16 << 20 // 16 MiB

// spoolBuffer is an io.Writer that buffers in memory up to a threshold,
// then transparently spills to a temp file, for collecting subprocess
// stdout/stderr without an unbounded in-memory buffer.
type spoolBuffer struct {
	buf  bytes.Buffer
	file *os.File
}

func newSpoolBuffer() *spoolBuffer { return &spoolBuffer{} }

func (s *spoolBuffer) Write(p []byte) (int, error) {
	if s.file != nil {
		return s.file.Write(p)
	}
	if s.buf.Len()+len(p) <= spoolThreshold {
		return s.buf.Write(p)
	}

	f, err := os.CreateTemp("", "biggrep-spool-*")
	if err != nil {
		return 0, err
	}
	if _, err := f.Write(s.buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return 0, err
	}
	s.buf.Reset()
	s.file = f
	return s.file.Write(p)
}

// Lines returns every non-empty line written to the buffer, reading back from the
// spill file (and removing it) if output overflowed to disk.
func (s *spoolBuffer) Lines() ([]string, error) {
	var r io.Reader
	if s.file != nil {
		defer func() {
			_ = s.file.Close()
			_ = os.Remove(s.file.Name())
		}()
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		r = s.file
	} else {
		r = bytes.NewReader(s.buf.Bytes())
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
