package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/cpm"
)

func newDirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dir FILE",
		Short: "List the CP/M directory of an image",
		Long: `Search the image for a CP/M directory and list its entries
together with the files they make up. Every layout that was tried
is shown with the fraction of plausible entries it scored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := loadMembers(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range members {
				renderDir(out, analyze.Analyze(m.Path(), m.Data, a.options()))
			}
			return nil
		},
	}
}

// renderDir lists the directory search of one report
func renderDir(w io.Writer, r *analyze.Report) {
	fmt.Fprintf(w, "%s: %s\n", r.Path, r.Outcome())
	if f := r.Failure; f != nil {
		fmt.Fprintf(w, "    error: %s\n", f.Message)
		return
	}

	d := r.Directory
	for _, attempt := range d.Attempts {
		fmt.Fprintf(w, "    tried %s\n", attempt)
	}
	if !d.Found {
		return
	}

	pointers := "8-bit"
	if d.Wide {
		pointers = "16-bit"
	}
	fmt.Fprintf(w, "\n    Directory at offset %d, %d entries, %s block pointers\n", d.Offset, len(d.Entries), pointers)
	fmt.Fprintf(w, "    Idx Usr Name          Ext  Rec  Attr  Blocks\n")
	for _, e := range d.Used() {
		fmt.Fprintf(w, "    %3d %3d %-12s %4d %4d  %-4s  %s\n",
			e.Index, e.User(), e.Filename(), e.Extent, e.Records, entryAttrs(&e), blockList(e.Blocks))
	}

	fmt.Fprintf(w, "\n    %d file(s)\n", len(r.Catalog))
	for _, f := range r.Catalog {
		fmt.Fprintf(w, "    %s\n", fileLine(&f))
	}
}

func entryAttrs(e *cpm.Entry) string {
	var b strings.Builder
	for _, attr := range []struct {
		set bool
		ch  byte
	}{{e.ReadOnly, 'R'}, {e.System, 'S'}, {e.Archived, 'A'}} {
		if attr.set {
			b.WriteByte(attr.ch)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func blockList(blocks []int) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprint(b)
	}
	return strings.Join(parts, " ")
}
