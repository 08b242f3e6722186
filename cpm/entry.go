package cpm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// Size of a directory entry in bytes
	EntrySize = 32

	// Status byte of an unused or deleted entry
	EmptyStatus = 0xE5

	// Highest user number accepted as a status byte
	maxUser = 31
)

// Entry is a decoded directory entry
type Entry struct {
	Index    int   // position in the directory
	Status   uint8 // user number, or 0xE5 for an empty entry
	Name     string
	Ext      string
	ReadOnly bool // T1'
	System   bool // T2'
	Archived bool // T3'
	Extent   int  // EX + 32*S2
	Records  int  // RC, 128-byte records in the last logical extent
	Blocks   []int
	Empty    bool
}

// User returns the user number of a used entry
func (e *Entry) User() uint8 {
	return e.Status
}

// Filename returns NAME.EXT with trailing spaces removed
func (e *Entry) Filename() string {
	if e.Ext == "" {
		return e.Name
	}
	return e.Name + "." + e.Ext
}

func (e *Entry) String() string {
	if e.Empty {
		return fmt.Sprintf("%2d: empty", e.Index)
	}
	return fmt.Sprintf("%2d: %2d:%-12s ext %d rc %d blocks %v", e.Index, e.Status, e.Filename(), e.Extent, e.Records, e.Blocks)
}

// plausible reports whether a raw entry looks like part of a CP/M directory
func plausible(raw []byte) bool {
	status := raw[0]
	if status > maxUser && status != EmptyStatus {
		return false
	}
	for _, c := range raw[1:12] {
		c &= 0x7f
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// decodeEntry unpacks a raw entry. Wide selects 16-bit block pointers.
func decodeEntry(index int, raw []byte, wide bool) Entry {
	e := Entry{
		Index:    index,
		Status:   raw[0],
		Name:     decodeName(raw[1:9]),
		Ext:      decodeName(raw[9:12]),
		ReadOnly: raw[9]&0x80 != 0,
		System:   raw[10]&0x80 != 0,
		Archived: raw[11]&0x80 != 0,
		Extent:   int(raw[12]) + 32*int(raw[14]),
		Records:  int(raw[15]),
		Empty:    raw[0] == EmptyStatus,
	}
	if e.Empty {
		return e
	}
	alloc := raw[16:32]
	if wide {
		for i := 0; i < len(alloc); i += 2 {
			if b := binary.LittleEndian.Uint16(alloc[i:]); b != 0 {
				e.Blocks = append(e.Blocks, int(b))
			}
		}
	} else {
		for _, b := range alloc {
			if b != 0 {
				e.Blocks = append(e.Blocks, int(b))
			}
		}
	}
	return e
}

// decodeName strips attribute bits and trailing spaces
func decodeName(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		c &= 0x7f
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		b.WriteByte(c)
	}
	return strings.TrimRight(b.String(), " ")
}
