package analyze

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/sergev/td0scan/cpm"
	"github.com/sergev/td0scan/td0"
)

// Options select the directory search policy and the logger
type Options struct {
	Candidates []cpm.Candidate // nil selects cpm.DefaultCandidates
	Threshold  float64         // 0 selects cpm.DefaultThreshold
	Log        log.FieldLogger // nil disables logging
}

func (o *Options) logger() log.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	quiet := log.New()
	quiet.SetOutput(io.Discard)
	return quiet
}

// Analyze decodes one image file and searches it for a CP/M directory.
// Format errors are reported in Report.Failure; data decoded before
// the failure stays in the report.
func Analyze(path string, data []byte, opts Options) *Report {
	logger := opts.logger().WithField("file", path)
	r := &Report{Path: path, Size: len(data)}

	d, err := Decode(data)
	if d != nil {
		r.Header = summarizeHeader(d.Container)
		r.Image = d.Image
		r.Tracks = d.Image.Stats
		r.Warnings = d.Warnings
	}
	if err != nil {
		r.Failure = &Failure{
			Kind:    td0.Kind(err),
			Path:    path,
			Offset:  td0.Offset(err),
			Message: err.Error(),
		}
		if r.Failure.Kind == "" {
			r.Failure.Kind = "Error"
		}
		if d != nil && d.Container.Expanded {
			r.Failure.Expanded = true
		}
		logger.WithField("kind", r.Failure.Kind).Debugf("decode failed: %v", err)
		return r
	}
	logger.Debugf("decoded %d tracks, %d sectors", r.Tracks.Tracks, r.Tracks.Sectors)

	locator := cpm.NewLocator(opts.Candidates, opts.Threshold)
	result := locator.Locate(d.Image.Flat(), d.Image.TrackOffset)
	r.Directory = &result
	if result.Found {
		r.Catalog = cpm.Catalog(result.Entries)
		logger.Debugf("directory %s at offset %d", result.Candidate.Name, result.Offset)
	} else {
		logger.Debugf("no directory in %d attempts", len(result.Attempts))
	}
	return r
}
