package bgiedit

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// SidecarSuffix is appended to a .bgi path to form its sidecar path.
const SidecarSuffix = ".fileidmap.txt"

// SidecarPath returns the sidecar path for a given .bgi path.
func SidecarPath(bgiPath string) string {
	return bgiPath + SidecarSuffix
}

// Extract reads the file-id map region out of bgiPath and writes it
// verbatim to its sidecar file. It fails if the recovered line count
// does not match the header's declared file count.
func Extract(bgiPath string) error {
	f, err := os.Open(bgiPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", bgiPath, err)
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", bgiPath, err)
	}

	if _, err := f.Seek(int64(h.MapOffset), io.SeekStart); err != nil {
		return fmt.Errorf("seek to map offset: %w", err)
	}

	sidecarPath := SidecarPath(bgiPath)
	sidecar, err := os.Create(sidecarPath)
	if err != nil {
		return fmt.Errorf("create sidecar %s: %w", sidecarPath, err)
	}
	defer sidecar.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	w := bufio.NewWriter(sidecar)
	lines := 0
	for scanner.Scan() {
		if _, err := w.WriteString(scanner.Text()); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read map region: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush sidecar: %w", err)
	}

	if uint32(lines) != h.FileCount {
		_ = os.Remove(sidecarPath)
		return fmt.Errorf("%s: extracted %d lines, header declares %d", bgiPath, lines, h.FileCount)
	}

	return nil
}
