package geometry

import (
	"fmt"
	"sort"

	"github.com/sergev/td0scan/td0"
)

// Key addresses a sector: cylinder and head of its track, plus the sector number
type Key struct {
	Cyl    uint8
	Head   uint8
	Sector uint8
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%d.%d", k.Cyl, k.Head, k.Sector)
}

func (k Key) less(o Key) bool {
	if k.Cyl != o.Cyl {
		return k.Cyl < o.Cyl
	}
	if k.Head != o.Head {
		return k.Head < o.Head
	}
	return k.Sector < o.Sector
}

// Sector is one stored sector of the image
type Sector struct {
	Key
	SizeCode     uint8
	Flags        uint8
	Data         []byte // empty when the image holds no data for the sector
	FromPrevious bool
}

// Size returns the nominal sector length, 0 for invalid size codes
func (s *Sector) Size() int {
	return td0.SectorSize(s.SizeCode)
}

// Track lists the sector numbers of one track record in recorded order
type Track struct {
	Cyl     uint8
	Head    uint8
	Offset  int64 // position of the track header in the image
	Sectors []uint8
}

// Stats are aggregate counts over the whole image
type Stats struct {
	Tracks          int
	Sides           int
	SectorsPerTrack int // most common sector count
	Sectors         int
	SizeCodes       map[uint8]int // sectors per size code
}

// Image is the assembled disk: tracks in image order,
// sectors in logical (cylinder, head, sector) order.
type Image struct {
	Tracks   []Track
	Sectors  []Sector
	Stats    Stats
	Warnings []string
}

// Sector finds a sector by key
func (img *Image) Sector(key Key) (*Sector, bool) {
	i := sort.Search(len(img.Sectors), func(i int) bool {
		return !img.Sectors[i].Key.less(key)
	})
	if i < len(img.Sectors) && img.Sectors[i].Key == key {
		return &img.Sectors[i], true
	}
	return nil, false
}

// Flat concatenates sector data in logical order.
// Sectors without data are zero-filled to their nominal size.
func (img *Image) Flat() []byte {
	size := 0
	for i := range img.Sectors {
		size += img.Sectors[i].Size()
	}
	flat := make([]byte, 0, size)
	for i := range img.Sectors {
		s := &img.Sectors[i]
		n := s.Size()
		if len(s.Data) >= n {
			flat = append(flat, s.Data[:n]...)
			continue
		}
		flat = append(flat, s.Data...)
		flat = append(flat, make([]byte, n-len(s.Data))...)
	}
	return flat
}

// TrackOffset returns the offset of the n-th logical track (distinct cylinder
// and head, in ascending order) in the flat stream. For n equal to the number of
// logical tracks it returns the stream length; beyond that it returns -1.
func (img *Image) TrackOffset(n int) int {
	if n < 0 {
		return -1
	}
	offset, track := 0, 0
	for i := range img.Sectors {
		s := &img.Sectors[i]
		if i > 0 {
			prev := &img.Sectors[i-1]
			if prev.Cyl != s.Cyl || prev.Head != s.Head {
				track++
			}
		}
		if track == n {
			return offset
		}
		offset += s.Size()
	}
	if len(img.Sectors) > 0 {
		track++
	}
	if track == n {
		return offset
	}
	return -1
}
