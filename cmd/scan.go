package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/td0scan/scan"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan PATH...",
		Short: "Analyze all images found under the given paths",
		Long: `Walk the given files and directories, analyze every .TD0 image
and print one report per image. Images inside zip and tar archives
and gzip, xz or zstd compressed images are analyzed as well.
A malformed image fails only its own report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := &scan.Scanner{
				Workers: a.conf.WorkerCount(),
				Options: a.options(),
				Render:  renderReport,
				Out:     out,
				Log:     a.log,
			}
			sum, err := s.Scan(args)
			fmt.Fprintf(out, "%s\n", sum)
			return err
		},
	}
}
