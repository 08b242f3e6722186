package cpm

import (
	"fmt"
)

// Candidate is one guess at the disk parameters that place a CP/M directory
type Candidate struct {
	Name           string
	Offset         int // byte offset in the flat image, used when ReservedTracks is 0
	ReservedTracks int // directory starts after this many logical tracks
	Entries        int // directory entries (DRM+1)
	BlockSize      int // allocation block size (BLS)
}

// DefaultCandidates returns the built-in parameter set, tried in order
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "amstrad-data", Offset: 0, Entries: 64, BlockSize: 1024},
		{Name: "pcw-plus3", ReservedTracks: 1, Entries: 64, BlockSize: 1024},
		{Name: "amstrad-system", ReservedTracks: 2, Entries: 64, BlockSize: 1024},
		{Name: "osborne-1", ReservedTracks: 3, Entries: 64, BlockSize: 1024},
		{Name: "pcw-720k", ReservedTracks: 1, Entries: 256, BlockSize: 2048},
		{Name: "ibm-8in-sssd", Offset: 2 * 26 * 128, Entries: 64, BlockSize: 1024},
	}
}

// Validate checks that the candidate describes a usable directory region
func (c Candidate) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("candidate has no name")
	}
	if c.Offset < 0 || c.Offset%EntrySize != 0 {
		return fmt.Errorf("candidate %q has invalid offset: %d (must be a non-negative multiple of %d)", c.Name, c.Offset, EntrySize)
	}
	if c.ReservedTracks < 0 {
		return fmt.Errorf("candidate %q has invalid reserved_tracks: %d (must not be negative)", c.Name, c.ReservedTracks)
	}
	if c.ReservedTracks > 0 && c.Offset != 0 {
		return fmt.Errorf("candidate %q sets both offset and reserved_tracks", c.Name)
	}
	if c.Entries <= 0 {
		return fmt.Errorf("candidate %q has invalid entries: %d (must be positive)", c.Name, c.Entries)
	}
	switch c.BlockSize {
	case 1024, 2048, 4096, 8192, 16384:
	default:
		return fmt.Errorf("candidate %q has invalid block_size: %d (valid values: 1024-16384, power of two)", c.Name, c.BlockSize)
	}
	return nil
}

// start returns the directory offset, or -1 when it lies outside the image
func (c Candidate) start(trackOffset func(int) int) int {
	if c.ReservedTracks > 0 {
		if trackOffset == nil {
			return -1
		}
		return trackOffset(c.ReservedTracks)
	}
	return c.Offset
}
