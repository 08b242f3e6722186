package analyze

import (
	"fmt"
	"io"

	"github.com/sergev/td0scan/geometry"
	"github.com/sergev/td0scan/td0"
)

// Decoded holds every stage of one decoded image.
// After a failure it holds whatever was decoded before it.
type Decoded struct {
	Container *td0.Container
	Tracks    []*td0.Track
	Image     *geometry.Image
	Warnings  []string
}

// Decode parses an image and assembles its sectors.
// The result is never nil, except for an invalid header.
func Decode(data []byte) (*Decoded, error) {
	c, err := td0.Parse(data)
	if c == nil {
		return nil, err
	}
	d := &Decoded{Container: c}
	for _, w := range c.Warnings {
		d.Warnings = append(d.Warnings, w.String())
	}
	asm := geometry.NewAssembler()
	if err != nil {
		d.Image = asm.Image()
		return d, err
	}

	reader := td0.NewReader(c.Stream, c.Base, asm.Previous)
	for {
		track, err2 := reader.NextTrack()
		if track != nil {
			asm.Add(track)
			d.Tracks = append(d.Tracks, track)
		}
		if err2 == io.EOF {
			break
		}
		if err2 != nil {
			err = err2
			break
		}
	}
	for _, w := range reader.Warnings() {
		d.Warnings = append(d.Warnings, w.String())
	}
	if err == nil && !c.Expanded && reader.Remaining() > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d bytes after the end of image marker", reader.Remaining()))
	}

	d.Image = asm.Image()
	d.Warnings = append(d.Warnings, d.Image.Warnings...)
	return d, err
}
