package analyze

import (
	"time"

	"github.com/sergev/td0scan/cpm"
	"github.com/sergev/td0scan/geometry"
	"github.com/sergev/td0scan/td0"
)

// HeaderSummary describes the image header and comment
type HeaderSummary struct {
	Signature   string
	Advanced    bool
	Version     string
	DataRate    int // kbit/s, 0 when unknown
	FM          bool
	Drive       string
	Sides       int
	DOSAlloc    bool
	ChecksumOK  bool
	Comment     string
	Created     time.Time // zero without a comment or with an invalid date
	StreamStart int64     // offset of the first track record
}

// Failure is the single error outcome of a file
type Failure struct {
	Kind     string // error kind, e.g. "Truncated"
	Path     string
	Offset   int64 // -1 when unknown
	Expanded bool  // Offset refers to the expanded stream of an advanced image
	Message  string
}

// Report is the outcome of analyzing one file
type Report struct {
	Path      string
	Size      int
	Header    *HeaderSummary // nil when the header could not be read
	Tracks    geometry.Stats
	Image     *geometry.Image // partial when Failure is set
	Directory *cpm.Result     // nil after a failure
	Catalog   []cpm.File
	Warnings  []string
	Failure   *Failure
}

// OK reports whether the file was decoded without a failure
func (r *Report) OK() bool {
	return r.Failure == nil
}

// Outcome is a one-word result: the failure kind, the directory layout
// found, or cpm.NoDirectoryFound.
func (r *Report) Outcome() string {
	if r.Failure != nil {
		return r.Failure.Kind
	}
	if r.Directory == nil {
		return cpm.NoDirectoryFound
	}
	return r.Directory.Outcome()
}

func summarizeHeader(c *td0.Container) *HeaderSummary {
	h := &c.Header
	s := &HeaderSummary{
		Signature:   string(h.Signature[:]),
		Advanced:    h.Advanced(),
		Version:     h.VersionString(),
		DataRate:    h.DataRateKbps(),
		FM:          h.FM(),
		Drive:       h.DriveName(),
		Sides:       int(h.Sides),
		DOSAlloc:    h.DOSAlloc != 0,
		ChecksumOK:  h.ChecksumOK(),
		StreamStart: c.Base,
	}
	if c.Comment != nil {
		s.Comment = c.Comment.Text()
		if t, ok := c.Comment.Time(); ok {
			s.Created = t
		}
	}
	return s
}
