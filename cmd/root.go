package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/config"
	"github.com/sergev/td0scan/cpm"
	"github.com/sergev/td0scan/scan"
)

// app carries the configuration shared by all commands
type app struct {
	configPath string
	verbose    bool
	workers    int
	threshold  float64

	conf *config.Config
	log  *log.Logger
}

// NewRootCmd builds the td0scan command tree
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "td0scan",
		Short: "A CLI program which analyzes Teledisk floppy images",
		Long: `The td0scan tool decodes Teledisk (.TD0) floppy disk images,
reports their geometry and searches them for a CP/M directory.
Images may be stored in zip, tar, tar.gz, tar.xz, tar.zst archives
or compressed with gzip, xz or zstd.`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.td0scan)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log progress of every file")
	flags.IntVarP(&a.workers, "workers", "j", 0, "number of images analyzed in parallel (0 = CPU count)")
	flags.Float64Var(&a.threshold, "threshold", cpm.DefaultThreshold, "fraction of plausible entries to accept a directory")

	rootCmd.AddCommand(newScanCmd(a), newInfoCmd(a), newDirCmd(a), newExtractCmd(a))
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(NewRootCmd().Execute())
}

// setup loads the config file and applies command-line overrides
func (a *app) setup(cmd *cobra.Command) error {
	conf, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		conf.Workers = a.workers
	}
	if flags.Changed("threshold") {
		conf.Threshold = a.threshold
	}
	if flags.Changed("verbose") {
		conf.Verbose = a.verbose
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	a.conf = conf

	a.log = log.New()
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetLevel(log.InfoLevel)
	if conf.Verbose {
		a.log.SetLevel(log.DebugLevel)
	}
	a.log.WithField("config", conf.Path).Debug("configuration loaded")
	return nil
}

// options returns the analysis policy of the loaded configuration
func (a *app) options() analyze.Options {
	return analyze.Options{
		Candidates: a.conf.Candidates(),
		Threshold:  a.conf.Threshold,
		Log:        a.log,
	}
}

// loadMembers reads a file and returns every image it holds
func loadMembers(path string) ([]scan.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var members []scan.Member
	err = scan.Members(path, data, func(m scan.Member) error {
		members = append(members, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no TD0 image in %s", path)
	}
	return members, nil
}
