package cpm

import (
	"fmt"
)

const (
	// Fraction of plausible entries needed to accept a candidate
	DefaultThreshold = 0.5

	// Name of the negative result
	NoDirectoryFound = "NoDirectoryFound"
)

// Attempt records how one candidate scored
type Attempt struct {
	Candidate Candidate
	Offset    int // resolved directory offset, -1 when outside the image
	Entries   int // complete entries examined
	Plausible int
	Score     float64
	Skipped   string // reason the candidate was not scored
}

func (a Attempt) String() string {
	if a.Skipped != "" {
		return fmt.Sprintf("%s: skipped, %s", a.Candidate.Name, a.Skipped)
	}
	return fmt.Sprintf("%s at %d: %d of %d entries plausible (%.2f)",
		a.Candidate.Name, a.Offset, a.Plausible, a.Entries, a.Score)
}

// Result is the outcome of a directory search.
// A search that finds nothing is a normal result, not an error.
type Result struct {
	Found     bool
	Candidate Candidate
	Offset    int
	Wide      bool // 16-bit allocation pointers
	Entries   []Entry
	Attempts  []Attempt
}

// Outcome names the result: the accepted candidate or NoDirectoryFound
func (r *Result) Outcome() string {
	if !r.Found {
		return NoDirectoryFound
	}
	return r.Candidate.Name
}

// Used returns the entries that are not empty
func (r *Result) Used() []Entry {
	var used []Entry
	for _, e := range r.Entries {
		if !e.Empty {
			used = append(used, e)
		}
	}
	return used
}

// Locator tries candidate directory layouts in order
type Locator struct {
	Candidates []Candidate
	Threshold  float64
}

// NewLocator returns a locator; nil candidates and a zero threshold select the defaults
func NewLocator(candidates []Candidate, threshold float64) *Locator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Locator{Candidates: candidates, Threshold: threshold}
}

// Locate searches the flat image for a directory. trackOffset maps a number
// of reserved tracks to a byte offset, returning -1 past the end of the image.
func (l *Locator) Locate(flat []byte, trackOffset func(int) int) Result {
	var result Result
	for _, c := range l.Candidates {
		a := Attempt{Candidate: c, Offset: c.start(trackOffset)}
		if a.Offset < 0 || a.Offset >= len(flat) {
			a.Offset = -1
			a.Skipped = "directory starts past the end of the image"
			result.Attempts = append(result.Attempts, a)
			continue
		}

		// Only complete entries of the region count
		a.Entries = min(c.Entries, (len(flat)-a.Offset)/EntrySize)
		if a.Entries == 0 {
			a.Skipped = "no complete entry in the image"
			result.Attempts = append(result.Attempts, a)
			continue
		}
		region := flat[a.Offset : a.Offset+a.Entries*EntrySize]
		for i := 0; i < a.Entries; i++ {
			if plausible(region[i*EntrySize : (i+1)*EntrySize]) {
				a.Plausible++
			}
		}
		a.Score = float64(a.Plausible) / float64(a.Entries)
		result.Attempts = append(result.Attempts, a)

		if a.Score >= l.Threshold {
			result.Found = true
			result.Candidate = c
			result.Offset = a.Offset
			result.Wide = widePointers(len(flat)-a.Offset, c.BlockSize)
			for i := 0; i < a.Entries; i++ {
				result.Entries = append(result.Entries, decodeEntry(i, region[i*EntrySize:(i+1)*EntrySize], result.Wide))
			}
			return result
		}
	}
	return result
}

// widePointers reports whether a disk of size bytes needs 16-bit block numbers.
// Pointers stay 8-bit while the highest block number fits in a byte.
func widePointers(size, blockSize int) bool {
	return size/blockSize > 256
}
