package td0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Lookup returns the data of the sector with the same head and sector number
// on an earlier track. It is consulted for duplicate-flagged sectors.
type Lookup func(head, sector uint8) ([]byte, bool)

// Reader decodes track records from a container stream
type Reader struct {
	data     []byte
	pos      int
	base     int64
	lookup   Lookup
	done     bool
	warnings []Warning
}

// NewReader returns a reader over stream, whose first byte sits at offset base.
// lookup may be nil, in which case duplicate-flagged sectors read their own data.
func NewReader(stream []byte, base int64, lookup Lookup) *Reader {
	return &Reader{data: stream, base: base, lookup: lookup}
}

// Offset returns the position of the next record
func (r *Reader) Offset() int64 {
	return r.base + int64(r.pos)
}

// Warnings returns CRC mismatches seen so far
func (r *Reader) Warnings() []Warning {
	return r.warnings
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// NextTrack decodes the next track, returning io.EOF after the end-of-image marker.
// On a format error the track is returned with the sectors decoded so far.
func (r *Reader) NextTrack() (*Track, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.pos >= len(r.data) {
		return nil, errorAt(ErrTruncated, r.Offset(), "missing end of image marker")
	}
	if r.data[r.pos] == EndOfImage {
		r.done = true
		r.pos++
		return nil, io.EOF
	}
	if r.pos+TrackHeaderSize > len(r.data) {
		return nil, errorAt(ErrTruncated, r.Offset(), "track header needs %d bytes, %d left", TrackHeaderSize, r.Remaining())
	}

	raw := r.data[r.pos : r.pos+TrackHeaderSize]
	t := &Track{
		TrackHeader: TrackHeader{
			NumSectors: raw[0],
			Cylinder:   raw[1],
			Head:       raw[2],
			CRC:        raw[3],
		},
		Offset: r.Offset(),
	}
	if crc := byte(CRC16(raw[:3])); crc != t.CRC {
		r.warn(t.Offset, "track %d.%d header CRC %02x, computed %02x", t.Cylinder, t.Head, t.CRC, crc)
	}
	r.pos += TrackHeaderSize

	for i := 0; i < int(t.NumSectors); i++ {
		s, err := r.readSector(t.Head & 0x7f)
		if err != nil {
			return t, err
		}
		t.Sectors = append(t.Sectors, *s)
	}
	return t, nil
}

func (r *Reader) readSector(head uint8) (*Sector, error) {
	if r.pos+SectorHeaderSize > len(r.data) {
		return nil, errorAt(ErrTruncated, r.Offset(), "sector header needs %d bytes, %d left", SectorHeaderSize, r.Remaining())
	}
	raw := r.data[r.pos : r.pos+SectorHeaderSize]
	s := &Sector{
		SectorHeader: SectorHeader{
			Cylinder: raw[0],
			Head:     raw[1],
			Sector:   raw[2],
			SizeCode: raw[3],
			Flags:    raw[4],
			CRC:      raw[5],
		},
		Offset: r.Offset(),
		Method: -1,
	}
	r.pos += SectorHeaderSize
	if !s.HasData() {
		return s, nil
	}

	if s.Flags&FlagDuplicate != 0 && r.lookup != nil {
		if data, ok := r.lookup(head, s.Sector); ok {
			s.Data = data
			s.FromPrevious = true
			return s, nil
		}
	}

	// Data block: length including the method byte, then method and payload
	if r.pos+2 > len(r.data) {
		return nil, errorAt(ErrTruncated, r.Offset(), "data block length needs 2 bytes, %d left", r.Remaining())
	}
	blockLen := int(binary.LittleEndian.Uint16(r.data[r.pos:]))
	if blockLen == 0 {
		return nil, errorAt(ErrLengthMismatch, r.Offset(), "empty data block for sector %d", s.Sector)
	}
	r.pos += 2
	if r.pos+blockLen > len(r.data) {
		return nil, errorAt(ErrTruncated, r.Offset(), "data block of %d bytes, %d left", blockLen, r.Remaining())
	}

	methodOffset := r.Offset()
	method := int(r.data[r.pos])
	data, err := ExpandSector(method, r.data[r.pos+1:r.pos+blockLen], s.Size())
	if err != nil {
		if errors.Is(err, ErrUnsupportedCompression) {
			return nil, errorAt(ErrUnsupportedCompression, methodOffset, "method %d in sector %d", method, s.Sector)
		}
		return nil, rebase(err, methodOffset+1)
	}
	r.pos += blockLen
	s.Method = method
	s.Data = data

	if crc := byte(CRC16(data)); crc != s.CRC {
		r.warn(s.Offset, "sector %d.%d.%d data CRC %02x, computed %02x", s.Cylinder, s.Head, s.Sector, s.CRC, crc)
	}
	return s, nil
}

func (r *Reader) warn(offset int64, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{
		Err:     ErrChecksumMismatch,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	})
}
