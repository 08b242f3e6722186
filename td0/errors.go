package td0

import (
	"errors"
	"fmt"
)

// Error kinds reported for malformed images
var (
	ErrBadSignature           = errors.New("bad signature")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
	ErrTruncated              = errors.New("truncated")
	ErrLengthMismatch         = errors.New("length mismatch")
	ErrOverrun                = errors.New("overrun")
	ErrUnsupportedCompression = errors.New("unsupported compression method")
)

// Kind names, as shown in reports
var kindNames = []struct {
	err  error
	name string
}{
	{ErrBadSignature, "BadSignature"},
	{ErrChecksumMismatch, "ChecksumMismatch"},
	{ErrTruncated, "Truncated"},
	{ErrLengthMismatch, "LengthMismatch"},
	{ErrOverrun, "Overrun"},
	{ErrUnsupportedCompression, "UnsupportedCompressionMethod"},
}

// FormatError describes where parsing of an image diverged.
// Offset is -1 when the position is not known.
type FormatError struct {
	Err    error
	Offset int64
	Detail string
}

func (e *FormatError) Error() string {
	msg := e.Err.Error()
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func errorAt(err error, offset int64, format string, args ...any) *FormatError {
	return &FormatError{Err: err, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// rebase shifts the offset of a FormatError by delta
func rebase(err error, delta int64) error {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return err
	}
	moved := *fe
	if moved.Offset >= 0 {
		moved.Offset += delta
	}
	return &moved
}

// Kind returns the kind name of err, or "" when err is not a format error.
func Kind(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// Offset returns the byte offset carried by err, or -1.
func Offset(err error) int64 {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Offset
	}
	return -1
}

// Warning is a non-fatal problem found while reading an image
type Warning struct {
	Err     error // kind, usually ErrChecksumMismatch
	Offset  int64
	Message string
}

func (w Warning) String() string {
	kind := "warning"
	if w.Err != nil {
		kind = w.Err.Error()
	}
	if w.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %s", kind, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", kind, w.Message)
}
