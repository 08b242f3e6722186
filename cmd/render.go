package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/cpm"
	"github.com/sergev/td0scan/geometry"
)

// renderReport prints the text report of one file
func renderReport(w io.Writer, r *analyze.Report) {
	fmt.Fprintf(w, "%s: %s\n", r.Path, r.Outcome())

	if h := r.Header; h != nil {
		fmt.Fprintf(w, "    header: %s\n", headerLine(h))
		if h.Comment != "" {
			lines := strings.Split(h.Comment, "\n")
			fmt.Fprintf(w, "    comment: %s\n", strings.Join(lines, " / "))
		}
		if !h.Created.IsZero() {
			fmt.Fprintf(w, "    created: %s\n", h.Created.Format("2006-01-02 15:04:05"))
		}
	}
	if r.Image != nil && len(r.Image.Sectors) > 0 {
		fmt.Fprintf(w, "    tracks: %s\n", statsLine(&r.Tracks))
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "    warning: %s\n", warning)
	}

	if f := r.Failure; f != nil {
		where := ""
		if f.Offset >= 0 {
			where = fmt.Sprintf(" at offset %d", f.Offset)
			if f.Expanded {
				where += " of expanded data"
			}
		}
		fmt.Fprintf(w, "    error: %s%s: %s\n", f.Kind, where, f.Message)
		return
	}

	if d := r.Directory; d != nil && d.Found {
		fmt.Fprintf(w, "    directory: %s at offset %d, %d of %d entries used\n",
			d.Candidate.Name, d.Offset, len(d.Used()), len(d.Entries))
		for _, f := range r.Catalog {
			fmt.Fprintf(w, "        %s\n", fileLine(&f))
		}
	}
}

func headerLine(h *analyze.HeaderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s", h.Signature, h.Version)
	if h.Advanced {
		b.WriteString(" advanced")
	}
	density := "MFM"
	if h.FM {
		density = "FM"
	}
	if h.DataRate > 0 {
		fmt.Fprintf(&b, ", %d kbps %s", h.DataRate, density)
	} else {
		fmt.Fprintf(&b, ", unknown rate %s", density)
	}
	fmt.Fprintf(&b, ", drive %s, %d side(s)", h.Drive, h.Sides)
	if h.DOSAlloc {
		b.WriteString(", DOS sectors only")
	}
	if !h.ChecksumOK {
		b.WriteString(", bad header CRC")
	}
	return b.String()
}

func statsLine(s *geometry.Stats) string {
	codes := make([]int, 0, len(s.SizeCodes))
	for code := range s.SizeCodes {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	sizes := make([]string, len(codes))
	for i, code := range codes {
		sizes[i] = fmt.Sprintf("%dx%d", s.SizeCodes[uint8(code)], 128<<code)
	}
	return fmt.Sprintf("%d tracks, %d side(s), %d sectors per track, %d sectors (%s)",
		s.Tracks, s.Sides, s.SectorsPerTrack, s.Sectors, strings.Join(sizes, ", "))
}

func fileLine(f *cpm.File) string {
	attrs := ""
	if f.ReadOnly {
		attrs += " R/O"
	}
	if f.System {
		attrs += " SYS"
	}
	return fmt.Sprintf("%2d:%-12s %7d bytes, %d extent(s)%s", f.User, f.Name, f.Size(), f.Extents, attrs)
}
