// Package doldoc handles the binary side of TempleOS DolDoc files: the
// bin records appended after the first NUL byte of a source file, and
// the sprite element streams stored inside them.
package doldoc

import "encoding/binary"

// binHeaderLen is the fixed record header: num, flags, size, use count,
// each a little-endian u32.
const binHeaderLen = 16

// truncationSlack is how many missing payload bytes a final record may
// have and still be kept. Larger overshoot halts record parsing, since
// a wildly wrong size means the tail is corrupt.
const truncationSlack = 8

// ParseBinTail walks the byte stream after a source file's first NUL
// and returns the bin payloads keyed by bin number.
func ParseBinTail(tail []byte) map[uint32][]byte {
	bins := make(map[uint32][]byte)
	p := 0
	for p+binHeaderLen <= len(tail) {
		num := binary.LittleEndian.Uint32(tail[p:])
		size := int(binary.LittleEndian.Uint32(tail[p+8:]))
		p += binHeaderLen

		remaining := len(tail) - p
		if size > remaining {
			if size-remaining <= truncationSlack {
				bins[num] = append([]byte(nil), tail[p:]...)
			}
			break
		}

		bins[num] = append([]byte(nil), tail[p:p+size]...)
		p += size
	}
	return bins
}
