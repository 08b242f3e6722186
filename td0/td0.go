package td0

import (
	"bytes"
	"time"
)

// Constants for TD0 format signatures
const (
	// Signature of an image with per-sector compression only
	SignatureNormal = "TD"

	// Signature of an image whose tail is one LZHUF stream
	SignatureAdvanced = "td"

	// Fixed record sizes in bytes
	HeaderSize        = 12
	CommentHeaderSize = 10
	TrackHeaderSize   = 4
	SectorHeaderSize  = 6

	// Sector count that terminates the track list
	EndOfImage = 0xFF

	// Stepping bit which announces a comment block
	CommentFlag = 0x80

	// Oldest version using LZHUF for advanced compression (2.0)
	MinAdvancedVersion = 20
)

// Sector flags
const (
	FlagDuplicate = 0x01 // data is the same as on the previous track
	FlagCRCError  = 0x02 // sector was read with a CRC error
	FlagDeleted   = 0x04 // deleted-data address mark
	FlagSkipped   = 0x10 // data skipped, not allocated by DOS
	FlagNoData    = 0x20 // ID field without data field
	FlagNoID      = 0x40 // data field without ID field
)

// Sector data compression methods
const (
	MethodRaw     = 0
	MethodPattern = 1
	MethodRLE     = 2
)

// MaxSizeCode is the largest size code that carries a data block (128 << 6 = 8192)
const MaxSizeCode = 6

// Header represents the 12-byte image header
type Header struct {
	Signature     [2]byte
	Sequence      uint8 // volume sequence number
	CheckSequence uint8 // identifies all volumes of a set
	Version       uint8 // Teledisk version, 21 for 2.1
	DataRate      uint8 // 0=250K 1=300K 2=500K, bit 7 = FM
	DriveType     uint8
	Stepping      uint8 // bit 7 = comment block present
	DOSAlloc      uint8 // non-zero when only DOS-allocated sectors were copied
	Sides         uint8
	CRC           uint16
}

// CommentHeader precedes the comment text
type CommentHeader struct {
	CRC    uint16 // covers bytes 2..9 and the text
	Length uint16 // text length in bytes
	Year   uint8  // years since 1900
	Month  uint8  // 0..11
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// Comment is the optional block following the header
type Comment struct {
	CommentHeader
	Lines []string // text split at NUL bytes
}

// TrackHeader starts every track record
type TrackHeader struct {
	NumSectors uint8 // number of sectors, 0xFF ends the image
	Cylinder   uint8
	Head       uint8
	CRC        uint8 // low byte of CRC over the first 3 bytes
}

// SectorHeader is the recorded sector ID plus Teledisk flags
type SectorHeader struct {
	Cylinder uint8
	Head     uint8
	Sector   uint8
	SizeCode uint8 // sector length is 128 << SizeCode
	Flags    uint8
	CRC      uint8 // low byte of CRC over the sector data
}

// Sector is a decoded sector record
type Sector struct {
	SectorHeader
	Offset       int64  // position of the sector header
	Method       int    // compression method, -1 when no data block was read
	Data         []byte // decoded data, empty for no-data and skipped sectors
	FromPrevious bool   // data copied from the previous track
}

// Track is a decoded track record
type Track struct {
	TrackHeader
	Offset  int64 // position of the track header
	Sectors []Sector
}

// Advanced reports whether the image uses advanced compression
func (h *Header) Advanced() bool {
	return string(h.Signature[:]) == SignatureAdvanced
}

// HasComment reports whether a comment block follows the header
func (h *Header) HasComment() bool {
	return h.Stepping&CommentFlag != 0
}

// FM reports single density recording
func (h *Header) FM() bool {
	return h.DataRate&0x80 != 0
}

// DataRateKbps returns the data rate in kbit/s, or 0 when unknown
func (h *Header) DataRateKbps() int {
	switch h.DataRate & 0x7f {
	case 0:
		return 250
	case 1:
		return 300
	case 2:
		return 500
	default:
		return 0
	}
}

// DriveName describes the source drive type
func (h *Header) DriveName() string {
	switch h.DriveType {
	case 0:
		return "5.25\" 96 tpi"
	case 1:
		return "5.25\" 360K"
	case 2:
		return "5.25\" 1.2M"
	case 3:
		return "3.5\" 720K"
	case 4:
		return "3.5\" 1.44M"
	case 5:
		return "8\""
	case 6:
		return "3.5\""
	default:
		return "unknown"
	}
}

// VersionString formats the version byte, e.g. 21 as "2.1"
func (h *Header) VersionString() string {
	return string([]byte{'0' + h.Version/10%10, '.', '0' + h.Version%10})
}

// Time returns the comment timestamp.
// The second result is false when the fields do not form a valid date.
func (c *CommentHeader) Time() (time.Time, bool) {
	if c.Month > 11 || c.Day < 1 || c.Day > 31 || c.Hour > 23 || c.Minute > 59 || c.Second > 59 {
		return time.Time{}, false
	}
	t := time.Date(1900+int(c.Year), time.Month(c.Month+1), int(c.Day),
		int(c.Hour), int(c.Minute), int(c.Second), 0, time.UTC)
	if t.Day() != int(c.Day) {
		// Day overflowed into the next month
		return time.Time{}, false
	}
	return t, true
}

// Text returns the comment lines joined by newlines
func (c *Comment) Text() string {
	var b bytes.Buffer
	for i, line := range c.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// SectorSize returns the length of a sector with the given size code,
// or 0 for codes above MaxSizeCode
func SectorSize(code uint8) int {
	if code > MaxSizeCode {
		return 0
	}
	return 128 << code
}

// Size returns the nominal sector length in bytes, or 0 for invalid size codes
func (s *SectorHeader) Size() int {
	return SectorSize(s.SizeCode)
}

// HasData reports whether a data block follows the sector header
func (s *SectorHeader) HasData() bool {
	return s.Flags&(FlagSkipped|FlagNoData) == 0 && s.SizeCode <= MaxSizeCode
}

// HasSignature reports whether data starts with a TD0 signature
func HasSignature(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	sig := string(data[:2])
	return sig == SignatureNormal || sig == SignatureAdvanced
}
