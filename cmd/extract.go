package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/geometry"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE DEST.img",
		Short: "Write the sectors of an image as a flat file",
		Long: `Decode the image and save its sectors to file DEST.img,
ordered by cylinder, head and sector number. Sectors without data
are filled with zeros.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := loadMembers(args[0])
			if err != nil {
				return err
			}
			if len(members) > 1 {
				return fmt.Errorf("%s holds %d images, extract needs exactly one", args[0], len(members))
			}
			m := members[0]
			a.log.WithField("file", m.Path()).Debug("extract")

			d, err := analyze.Decode(m.Data)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", m.Path(), err)
			}
			for _, warning := range d.Warnings {
				a.log.WithField("file", m.Path()).Warn(warning)
			}
			if err := geometry.WriteIMG(args[1], d.Image); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image of %d sectors saved to file '%s'.\n", len(d.Image.Sectors), args[1])
			return nil
		},
	}
}
