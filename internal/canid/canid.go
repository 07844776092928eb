// Package canid converts textual CAN frame identifiers and bit/byte
// selections into their canonical binary representations. All functions
// are pure; every writer that emits a PID or mask goes through here so
// the database row, the JSON snapshot and the generated SQL can never
// disagree.
package canid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an identifier is not decimal or 0x-hex.
var ErrMalformed = errors.New("malformed CAN identifier")

// StandardMask and ExtendedMask are the valid identifier ranges for
// 11-bit and 29-bit frames.
const (
	StandardMask uint32 = 0x7FF
	ExtendedMask uint32 = 0x1FFFFFFF
)

// PayloadBytes is the width of a classic CAN data field.
const PayloadBytes = 8

// Parse accepts a decimal or 0x-prefixed hexadecimal identifier.
// Identifiers above the 29-bit space are rejected.
func Parse(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	if v > uint64(ExtendedMask) {
		return 0, fmt.Errorf("%w: %q exceeds 29-bit space", ErrMalformed, text)
	}
	return uint32(v), nil
}

// Mask returns the identifier bitmask for the selected address space.
func Mask(extended bool) uint32 {
	if extended {
		return ExtendedMask
	}
	return StandardMask
}

// FixedHex encodes v as a fixed-width big-endian 4-byte value. This is
// the on-disk form of both the PID and its mask.
func FixedHex(v uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b
}

// HexBlob renders v as a sqlite hex blob literal, e.g. X'000007E8'.
func HexBlob(v uint32) string {
	b := FixedHex(v)
	return fmt.Sprintf("X'%02X%02X%02X%02X'", b[0], b[1], b[2], b[3])
}

// BytesBlob renders raw bytes as a sqlite hex blob literal.
func BytesBlob(b []byte) string {
	var sb strings.Builder
	sb.WriteString("X'")
	for _, c := range b {
		fmt.Fprintf(&sb, "%02X", c)
	}
	sb.WriteString("'")
	return sb.String()
}

// PayloadMask derives the 8-byte payload mask from the submitted
// selections. A byte is fully set when any selected bit or byte maps
// into it. When both selection lists are empty and an offset/length
// range is given, the covered bytes are computed from that range,
// clamped to bits 0..63. Entries outside the payload are dropped
// silently; with no usable input the mask is all zero.
func PayloadMask(selectedBits, selectedBytes []int, offsetBits, lengthBits *int64) [PayloadBytes]byte {
	var mask [PayloadBytes]byte

	touched := false
	for _, bit := range selectedBits {
		if bit < 0 || bit >= PayloadBytes*8 {
			continue
		}
		mask[bit/8] = 0xFF
		touched = true
	}
	for _, b := range selectedBytes {
		if b < 0 || b >= PayloadBytes {
			continue
		}
		mask[b] = 0xFF
		touched = true
	}
	if touched {
		return mask
	}

	if offsetBits != nil && lengthBits != nil && *lengthBits > 0 {
		start := *offsetBits
		if start < 0 {
			start = 0
		}
		end := *offsetBits + *lengthBits - 1
		if end > PayloadBytes*8-1 {
			end = PayloadBytes*8 - 1
		}
		for bit := start; bit <= end; bit++ {
			mask[bit/8] = 0xFF
		}
	}
	return mask
}
