package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/td0"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show header, comment and sector list of an image",
		Long: `Decode the image and print its header, the comment block
and every track and sector record as stored in the file.
For an archive, every image inside it is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := loadMembers(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range members {
				a.log.WithField("file", m.Path()).Debug("info")
				d, err := analyze.Decode(m.Data)
				renderInfo(out, m.Path(), d, err)
			}
			return nil
		},
	}
}

// renderInfo lists the records of one decoded image
func renderInfo(w io.Writer, path string, d *analyze.Decoded, err error) {
	if d == nil {
		fmt.Fprintf(w, "%s: %s\n", path, failureLine(err))
		return
	}

	h := &d.Container.Header
	comment := "-"
	if h.HasComment() {
		comment = "O"
	}
	fmt.Fprintf(w, "%s seq %02x check %02x ver %s rate %02x type %02x %s step %02x dos %02x sides %02x - %s\n",
		string(h.Signature[:]), h.Sequence, h.CheckSequence, h.VersionString(), h.DataRate, h.DriveType,
		comment, h.Stepping&^td0.CommentFlag, h.DOSAlloc, h.Sides, path)

	if c := d.Container.Comment; c != nil {
		stamp := "invalid date"
		if t, ok := c.Time(); ok {
			stamp = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "    %s : %d bytes\n", stamp, c.Length)
		for _, line := range c.Lines {
			fmt.Fprintf(w, "    %s : %s\n", stamp, line)
		}
	}

	for _, t := range d.Tracks {
		fmt.Fprintf(w, "[n%d c%3d h%d] at %#x\n", t.NumSectors, t.Cylinder, t.Head, t.Offset)
		for i := range t.Sectors {
			s := &t.Sectors[i]
			fmt.Fprintf(w, "    [c%3d h%d s%d z%d f%02x] %s\n",
				s.Cylinder, s.Head, s.Sector, 128<<s.SizeCode, s.Flags, sectorMethod(s))
		}
	}

	for _, warning := range d.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if err != nil {
		fmt.Fprintf(w, "%s\n", failureLine(err))
		return
	}
	fmt.Fprintf(w, "end of image: %d tracks, %d sectors\n", len(d.Tracks), len(d.Image.Sectors))
}

// sectorMethod names how the data of a sector was stored
func sectorMethod(s *td0.Sector) string {
	switch {
	case s.FromPrevious:
		return "duplicate"
	case s.Method == td0.MethodRaw:
		return "raw"
	case s.Method == td0.MethodPattern:
		return "pattern"
	case s.Method == td0.MethodRLE:
		return "rle"
	default:
		return "no data"
	}
}

func failureLine(err error) string {
	kind := td0.Kind(err)
	if kind == "" {
		kind = "Error"
	}
	return fmt.Sprintf("error: %s: %v", kind, err)
}
