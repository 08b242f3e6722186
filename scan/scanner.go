package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sergev/td0scan/analyze"
)

// RenderFunc writes the text of one report
type RenderFunc func(w io.Writer, r *analyze.Report)

// Scanner analyzes every image found under a set of paths
type Scanner struct {
	Workers int             // number of analyzing goroutines, at least 1
	Options analyze.Options // passed to every analysis
	Render  RenderFunc      // nil prints one line per file
	Out     io.Writer
	Log     log.FieldLogger // nil disables logging
}

// Summary counts the outcomes of a scan
type Summary struct {
	Files  int // images analyzed
	Failed int // images with a format error
	Found  int // images with a CP/M directory
}

type job struct {
	seq    int
	member Member
}

type result struct {
	seq    int
	text   []byte
	report *analyze.Report
}

// Scan analyzes all images under roots and writes their reports to Out
// in discovery order. Reports are rendered by the workers and written
// whole by the calling goroutine, so output of two files never mixes.
// An error reading the input stops the walk; reports of images
// already found are still written.
func (s *Scanner) Scan(roots []string) (Summary, error) {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	logger := s.logger()
	opts := s.Options
	if opts.Log == nil {
		opts.Log = logger
	}
	render := s.Render
	if render == nil {
		render = renderLine
	}

	jobs := make(chan job, workers)
	results := make(chan result, workers)

	// Producer
	var walkErr error
	go func() {
		defer close(jobs)
		seq := 0
		walkErr = Walk(uniqueRoots(roots), func(path string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			return Members(path, data, func(m Member) error {
				logger.WithFields(log.Fields{
					"file":      m.Path(),
					"container": m.Container.String(),
				}).Debug("queued")
				jobs <- job{seq: seq, member: m}
				seq++
				return nil
			})
		})
	}()

	// Workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				report := analyze.Analyze(j.member.Path(), j.member.Data, opts)
				var buf bytes.Buffer
				render(&buf, report)
				results <- result{seq: j.seq, text: buf.Bytes(), report: report}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Emitter: restore discovery order
	var sum Summary
	var writeErr error
	pending := make(map[int]result)
	next := 0
	for r := range results {
		pending[r.seq] = r
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			sum.add(p.report)
			if writeErr == nil {
				_, writeErr = s.Out.Write(p.text)
			}
		}
	}

	if walkErr != nil {
		return sum, walkErr
	}
	if writeErr != nil {
		return sum, fmt.Errorf("failed to write report: %w", writeErr)
	}
	return sum, nil
}

func (s *Scanner) logger() log.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	quiet := log.New()
	quiet.SetOutput(io.Discard)
	return quiet
}

func (sum *Summary) add(r *analyze.Report) {
	sum.Files++
	if !r.OK() {
		sum.Failed++
	} else if r.Directory != nil && r.Directory.Found {
		sum.Found++
	}
}

// String formats the totals line printed after a scan
func (sum Summary) String() string {
	return fmt.Sprintf("%d files, %d with CP/M directory, %d failed", sum.Files, sum.Found, sum.Failed)
}

func renderLine(w io.Writer, r *analyze.Report) {
	fmt.Fprintf(w, "%s: %s\n", r.Path, r.Outcome())
}
