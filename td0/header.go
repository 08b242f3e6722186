package td0

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Upper bound for the expansion of an advanced image
const maxExpandedSize = 64 << 20

// Container is an image file split into header, comment and track stream.
// For advanced images Stream is taken from the expanded data, and offsets
// count the 12 header bytes followed by the expanded bytes.
type Container struct {
	Header   Header
	Comment  *Comment
	Stream   []byte // track records
	Base     int64  // offset of Stream[0]
	Expanded bool
	Warnings []Warning
}

// ParseHeader reads and validates the 12-byte image header.
// A bad header CRC is not an error, see Header.ChecksumOK.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) >= 2 && !HasSignature(data) {
		return nil, errorAt(ErrBadSignature, 0, "got %q", data[:2])
	}
	if len(data) < HeaderSize {
		return nil, errorAt(ErrTruncated, int64(len(data)), "header needs %d bytes, file has %d", HeaderSize, len(data))
	}
	h := &Header{
		Sequence:      data[2],
		CheckSequence: data[3],
		Version:       data[4],
		DataRate:      data[5],
		DriveType:     data[6],
		Stepping:      data[7],
		DOSAlloc:      data[8],
		Sides:         data[9],
		CRC:           binary.LittleEndian.Uint16(data[10:12]),
	}
	copy(h.Signature[:], data[:2])
	return h, nil
}

// Bytes returns the 10 header bytes covered by the CRC
func (h *Header) Bytes() []byte {
	return []byte{
		h.Signature[0], h.Signature[1], h.Sequence, h.CheckSequence, h.Version,
		h.DataRate, h.DriveType, h.Stepping, h.DOSAlloc, h.Sides,
	}
}

// ChecksumOK reports whether the stored CRC matches the header bytes
func (h *Header) ChecksumOK() bool {
	return CRC16(h.Bytes()) == h.CRC
}

// Parse splits an image into its parts, expanding advanced images.
// On error the returned container holds whatever was parsed before the failure,
// or is nil when the header itself is invalid.
func Parse(data []byte) (*Container, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	c := &Container{Header: *h}
	if !h.ChecksumOK() {
		c.Warnings = append(c.Warnings, Warning{
			Err:     ErrChecksumMismatch,
			Offset:  10,
			Message: fmt.Sprintf("header CRC %04x, computed %04x", h.CRC, CRC16(h.Bytes())),
		})
	}

	body := data[HeaderSize:]
	if h.Advanced() {
		if h.Version < MinAdvancedVersion {
			return c, errorAt(ErrUnsupportedCompression, 4, "version %s uses the old advanced compression", h.VersionString())
		}
		body, err = expandLimited(body)
		if err != nil {
			return c, err
		}
		c.Expanded = true
	}

	pos := 0
	if h.HasComment() {
		comment, n, err := parseComment(body)
		if err != nil {
			return c, rebase(err, HeaderSize)
		}
		if comment.CRC != CRC16(body[2:n]) {
			c.Warnings = append(c.Warnings, Warning{
				Err:     ErrChecksumMismatch,
				Offset:  HeaderSize,
				Message: fmt.Sprintf("comment CRC %04x, computed %04x", comment.CRC, CRC16(body[2:n])),
			})
		}
		c.Comment = comment
		pos = n
	}
	c.Stream = body[pos:]
	c.Base = int64(HeaderSize + pos)
	return c, nil
}

func expandLimited(compressed []byte) ([]byte, error) {
	expanded, err := io.ReadAll(io.LimitReader(NewDecoder(compressed), maxExpandedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to expand image: %w", err)
	}
	if len(expanded) > maxExpandedSize {
		return nil, errorAt(ErrOverrun, -1, "expanded image exceeds %d bytes", maxExpandedSize)
	}
	return expanded, nil
}

// parseComment reads the comment block at the start of body.
// It returns the comment and the number of bytes consumed.
func parseComment(body []byte) (*Comment, int, error) {
	if len(body) < CommentHeaderSize {
		return nil, 0, errorAt(ErrTruncated, int64(len(body)), "comment header needs %d bytes, %d left", CommentHeaderSize, len(body))
	}
	c := &Comment{
		CommentHeader: CommentHeader{
			CRC:    binary.LittleEndian.Uint16(body[0:2]),
			Length: binary.LittleEndian.Uint16(body[2:4]),
			Year:   body[4],
			Month:  body[5],
			Day:    body[6],
			Hour:   body[7],
			Minute: body[8],
			Second: body[9],
		},
	}
	end := CommentHeaderSize + int(c.Length)
	if end > len(body) {
		return nil, 0, errorAt(ErrTruncated, int64(len(body)), "comment of %d bytes, %d left", c.Length, len(body)-CommentHeaderSize)
	}
	text := bytes.TrimRight(body[CommentHeaderSize:end], "\x00")
	if len(text) > 0 {
		for _, line := range bytes.Split(text, []byte{0}) {
			c.Lines = append(c.Lines, strings.ToValidUTF8(string(line), "?"))
		}
	}
	return c, end, nil
}
