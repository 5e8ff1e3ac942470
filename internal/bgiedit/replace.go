package bgiedit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// replaceTmpSuffix marks an in-progress atomic replace: the rewritten
// file is built at this temp path and then renamed over the original.
const replaceTmpSuffix = ".bgiedit.tmp"

// Replace overwrites bgiPath's file-id map region with the contents of
// its sidecar file. The sidecar's line count must equal the header's
// declared file count, or the operation aborts without touching
// bgiPath. The rewrite happens on a temp file that is fsynced and
// renamed over the original, so a crash mid-write never leaves a
// partially overwritten .bgi.
func Replace(bgiPath string) error {
	sidecarPath := SidecarPath(bgiPath)
	sidecar, err := os.Open(sidecarPath)
	if err != nil {
		return fmt.Errorf("open sidecar %s: %w", sidecarPath, err)
	}
	defer sidecar.Close()

	sidecarLines, err := countLines(sidecar)
	if err != nil {
		return fmt.Errorf("count sidecar lines: %w", err)
	}

	src, err := os.Open(bgiPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", bgiPath, err)
	}
	defer src.Close()

	h, err := readHeader(src)
	if err != nil {
		return fmt.Errorf("%s: %w", bgiPath, err)
	}

	if uint32(sidecarLines) != h.FileCount {
		return fmt.Errorf("%s: sidecar has %d lines, header declares %d", bgiPath, sidecarLines, h.FileCount)
	}

	tmpPath := bgiPath + replaceTmpSuffix
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", bgiPath, err)
	}
	if _, err := io.CopyN(tmp, src, int64(h.MapOffset)); err != nil {
		return fmt.Errorf("copy header region: %w", err)
	}

	if _, err := sidecar.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind sidecar: %w", err)
	}
	if _, err := io.Copy(tmp, sidecar); err != nil {
		return fmt.Errorf("copy sidecar into temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, bgiPath); err != nil {
		return fmt.Errorf("rename temp file over %s: %w", bgiPath, err)
	}

	return syncDir(filepath.Dir(bgiPath))
}

func countLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil // best-effort; not all platforms support directory fsync
	}
	defer d.Close()
	_ = d.Sync()
	return nil
}
