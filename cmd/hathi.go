package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/spf13/cobra"
	"github.com/tulibraries/cobindex/hathi"
)

// HathiBuilder is wrapped by NewHathiCommand and only exported for testing
// purposes.
var HathiBuilder *hathi.Builder

// NewHathiCommand returns a new cobra command wrapping HathiBuilder.
func NewHathiCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	HathiBuilder = hathi.NewBuilder("hathi", ".")
	hathiCommand := &cobra.Command{
		Use:   "build-hathi",
		Short: "build-hathi - build the HathiTrust overlap index",
		Long: `Load the trailing_*.csv overlap reports into the index looked up by
ingest --hathi-dir. An index that already holds data is left alone unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			HathiBuilder.Log = logger.NewStandardLogger(stderr)
			start := time.Now()
			n, err := HathiBuilder.Build()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "indexed %d entries in %s\n", n, time.Since(start))
			return nil
		},
	}
	flags := hathiCommand.Flags()
	flags.StringVar(&HathiBuilder.Dir, "hathi-dir", HathiBuilder.Dir, "Directory to build the index in.")
	flags.StringVar(&HathiBuilder.CSVDir, "csv-dir", HathiBuilder.CSVDir, "Directory holding the trailing_*.csv overlap reports.")
	flags.BoolVarP(&HathiBuilder.Force, "force", "f", false, "Rebuild even when the index holds data.")
	flags.IntVarP(&HathiBuilder.BatchSize, "batch-size", "b", HathiBuilder.BatchSize, "Number of entries written per leveldb batch.")
	return hathiCommand
}

func init() {
	subcommandFns["build-hathi"] = NewHathiCommand
}
