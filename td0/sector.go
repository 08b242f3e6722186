package td0

import (
	"encoding/binary"
)

// Longest RLE pattern shift that can fit a sector (1 << 13 = 8192)
const maxPatternShift = 13

// ExpandSector decodes a sector payload (the data block after its method byte)
// into exactly size bytes. Error offsets are relative to the start of payload.
func ExpandSector(method int, payload []byte, size int) ([]byte, error) {
	switch method {
	case MethodRaw:
		if len(payload) != size {
			return nil, errorAt(ErrLengthMismatch, 0, "raw payload has %d bytes, sector has %d", len(payload), size)
		}
		data := make([]byte, size)
		copy(data, payload)
		return data, nil
	case MethodPattern:
		return expandPattern(payload, size)
	case MethodRLE:
		return expandRLE(payload, size)
	default:
		return nil, errorAt(ErrUnsupportedCompression, -1, "method %d", method)
	}
}

// expandPattern tiles [count u16][pattern...] over the sector
func expandPattern(payload []byte, size int) ([]byte, error) {
	if len(payload) < 2 {
		return nil, errorAt(ErrTruncated, int64(len(payload)), "missing repeat count")
	}
	count := int(binary.LittleEndian.Uint16(payload))
	pattern := payload[2:]
	p := len(pattern)
	if p == 0 {
		return nil, errorAt(ErrLengthMismatch, 2, "empty pattern")
	}
	if size%p != 0 || count*p != size {
		return nil, errorAt(ErrLengthMismatch, 0, "%d repeats of %d bytes for a %d-byte sector", count, p, size)
	}
	data := make([]byte, 0, size)
	for i := 0; i < count; i++ {
		data = append(data, pattern...)
	}
	return data, nil
}

// expandRLE decodes literal and pattern-run blocks until the sector is full.
// Bytes after the last block are ignored.
func expandRLE(payload []byte, size int) ([]byte, error) {
	data := make([]byte, 0, size)
	pos := 0
	for len(data) < size {
		if pos+2 > len(payload) {
			return nil, errorAt(ErrTruncated, int64(len(payload)), "block header needs 2 bytes, %d left", len(payload)-pos)
		}
		blockType := payload[pos]
		count := int(payload[pos+1])
		start := pos
		pos += 2

		if blockType == 0 {
			// Literal run
			if len(data)+count > size {
				return nil, errorAt(ErrOverrun, int64(start), "literal of %d bytes after %d of %d", count, len(data), size)
			}
			if pos+count > len(payload) {
				return nil, errorAt(ErrTruncated, int64(len(payload)), "literal of %d bytes, %d left", count, len(payload)-pos)
			}
			data = append(data, payload[pos:pos+count]...)
			pos += count
			continue
		}

		// Pattern of 1<<type bytes repeated count times
		if blockType > maxPatternShift {
			return nil, errorAt(ErrOverrun, int64(start), "pattern block type %d", blockType)
		}
		plen := 1 << blockType
		if len(data)+count*plen > size {
			return nil, errorAt(ErrOverrun, int64(start), "%d repeats of %d bytes after %d of %d", count, plen, len(data), size)
		}
		if pos+plen > len(payload) {
			return nil, errorAt(ErrTruncated, int64(len(payload)), "pattern of %d bytes, %d left", plen, len(payload)-pos)
		}
		pattern := payload[pos : pos+plen]
		pos += plen
		for i := 0; i < count; i++ {
			data = append(data, pattern...)
		}
	}
	return data, nil
}
