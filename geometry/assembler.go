package geometry

import (
	"fmt"
	"sort"

	"github.com/sergev/td0scan/td0"
)

// Assembler collects decoded tracks into an Image
type Assembler struct {
	sectors  map[Key]*Sector
	tracks   []Track
	lastCyl  map[uint8]uint8 // cylinder of the latest track per head
	warnings []string
}

// NewAssembler returns an empty assembler
func NewAssembler() *Assembler {
	return &Assembler{
		sectors: make(map[Key]*Sector),
		lastCyl: make(map[uint8]uint8),
	}
}

func (a *Assembler) warn(format string, args ...any) {
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

// Add stores the sectors of a track. Bit 7 of the track head is ignored.
// A sector number seen twice in one track keeps the last copy, unless the
// later one is flagged as a duplicate. A sector already stored by an earlier
// track at the same cylinder and head is replaced. Both cases are warnings.
func (a *Assembler) Add(t *td0.Track) {
	head := t.Head & 0x7f
	track := Track{Cyl: t.Cylinder, Head: head, Offset: t.Offset}
	seen := make(map[uint8]bool)

	for i := range t.Sectors {
		s := &t.Sectors[i]
		key := Key{Cyl: t.Cylinder, Head: head, Sector: s.Sector}
		if seen[s.Sector] {
			if s.Flags&td0.FlagDuplicate != 0 {
				continue
			}
			a.warn("sector %s recorded twice in track at offset %d, keeping the last copy", key, t.Offset)
		} else {
			if _, ok := a.sectors[key]; ok {
				a.warn("sector %s recorded again by track at offset %d, keeping the last copy", key, t.Offset)
			}
			track.Sectors = append(track.Sectors, s.Sector)
		}
		seen[s.Sector] = true
		a.sectors[key] = &Sector{
			Key:          key,
			SizeCode:     s.SizeCode,
			Flags:        s.Flags,
			Data:         s.Data,
			FromPrevious: s.FromPrevious,
		}
	}
	a.tracks = append(a.tracks, track)
	a.lastCyl[head] = t.Cylinder
}

// Previous returns the data of the given sector on the latest track added
// for head. It serves as the td0.Lookup of duplicate-flagged sectors.
func (a *Assembler) Previous(head, sector uint8) ([]byte, bool) {
	cyl, ok := a.lastCyl[head&0x7f]
	if !ok {
		return nil, false
	}
	s, ok := a.sectors[Key{Cyl: cyl, Head: head & 0x7f, Sector: sector}]
	if !ok || len(s.Data) == 0 {
		return nil, false
	}
	return s.Data, true
}

// Image returns the assembled image with its statistics
func (a *Assembler) Image() *Image {
	img := &Image{
		Tracks:   a.tracks,
		Sectors:  make([]Sector, 0, len(a.sectors)),
		Warnings: append([]string(nil), a.warnings...),
	}
	for _, s := range a.sectors {
		img.Sectors = append(img.Sectors, *s)
	}
	sort.Slice(img.Sectors, func(i, j int) bool {
		return img.Sectors[i].Key.less(img.Sectors[j].Key)
	})

	img.Stats = Stats{
		Tracks:    len(a.tracks),
		Sectors:   len(img.Sectors),
		SizeCodes: make(map[uint8]int),
	}
	heads := make(map[uint8]bool)
	counts := make(map[int]int)
	for _, t := range a.tracks {
		heads[t.Head] = true
		counts[len(t.Sectors)]++
	}
	img.Stats.Sides = len(heads)
	for _, s := range img.Sectors {
		img.Stats.SizeCodes[s.SizeCode]++
	}

	// Modal sectors per track, ties go to the larger count
	best := -1
	for n, c := range counts {
		if best < 0 || c > counts[best] || (c == counts[best] && n > best) {
			best = n
		}
	}
	if best >= 0 {
		img.Stats.SectorsPerTrack = best
		for _, t := range a.tracks {
			if len(t.Sectors) != best {
				img.Warnings = append(img.Warnings, fmt.Sprintf(
					"track %d.%d has %d sectors, most tracks have %d", t.Cyl, t.Head, len(t.Sectors), best))
			}
		}
	}
	return img
}
