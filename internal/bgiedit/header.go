// Package bgiedit implements the file-id map tool: it reads a .bgi
// file's header, locates the file-id map region, and either extracts it
// to a sidecar text file or overwrites it in place from one.
package bgiedit

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Header is the parsed portion of a .bgi file this tool understands:
// the version stamp and the file-id map's location and size.
type Header struct {
	Major     uint8
	Minor     uint8
	HintType  uint8 // v2.1 only; zero for v2.0
	FileCount uint32
	MapOffset uint64
}

// readHeader parses the version-dependent header layout at the front of
// a .bgi file. Only versions 2.0 and 2.1 are supported; anything else is
// a fatal error.
func readHeader(r io.ReaderAt) (Header, error) {
	var versionBuf [2]byte
	if _, err := r.ReadAt(versionBuf[:], 8); err != nil {
		return Header{}, fmt.Errorf("read version: %w", err)
	}
	h := Header{Major: versionBuf[0], Minor: versionBuf[1]}

	switch {
	case h.Major == 2 && h.Minor == 0:
		var rest [12]byte
		if _, err := r.ReadAt(rest[:], 16); err != nil {
			return Header{}, fmt.Errorf("read v2.0 header: %w", err)
		}
		h.FileCount = binary.LittleEndian.Uint32(rest[0:4])
		h.MapOffset = binary.LittleEndian.Uint64(rest[4:12])
	case h.Major == 2 && h.Minor == 1:
		var hint [1]byte
		if _, err := r.ReadAt(hint[:], 11); err != nil {
			return Header{}, fmt.Errorf("read v2.1 hint type: %w", err)
		}
		h.HintType = hint[0]

		var rest [12]byte
		if _, err := r.ReadAt(rest[:], 17); err != nil {
			return Header{}, fmt.Errorf("read v2.1 header: %w", err)
		}
		h.FileCount = binary.LittleEndian.Uint32(rest[0:4])
		h.MapOffset = binary.LittleEndian.Uint64(rest[4:12])
	default:
		return Header{}, fmt.Errorf("unsupported .bgi format version %d.%d", h.Major, h.Minor)
	}

	if h.FileCount == 0 || h.MapOffset == 0 {
		return Header{}, fmt.Errorf("corrupt or incomplete index: file_count=%d map_offset=%d", h.FileCount, h.MapOffset)
	}

	return h, nil
}
