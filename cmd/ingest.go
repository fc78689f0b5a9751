package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaffee/commandeer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/file"
	"github.com/tulibraries/cobindex/ingest"
)

// IngestMain is wrapped by NewIngestCommand and only exported for testing
// purposes.
var IngestMain *ingest.Main

// NewIngestCommand returns a new cobra command wrapping IngestMain.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	IngestMain = ingest.NewMain()
	ingestCommand := &cobra.Command{
		Use:   "ingest <path|->",
		Short: "ingest - index MARCXML files into Solr",
		Long: `Index a MARCXML collection, an OAI-PMH response or a directory of them
into Solr. A path of - reads standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawSource(stdin, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			stats, err := IngestMain.Run(ctx, raw)
			printStats(stdout, stats)
			return err
		},
	}
	mustFlags(ingestCommand, IngestMain)
	return ingestCommand
}

func init() {
	subcommandFns["ingest"] = NewIngestCommand
}

// rawSource reads standard input for "-" and the file or directory at path
// otherwise.
func rawSource(stdin io.Reader, path string) (cobindex.RawSource, error) {
	if path == "-" {
		return cobindex.NewReaderSource("stdin", stdin), nil
	}
	raw, err := file.NewRawSource(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}
	return raw, nil
}

// mustFlags adds a flag for every field of each of mains to cmd.
func mustFlags(cmd *cobra.Command, mains ...interface{}) {
	for _, m := range mains {
		if err := commandeer.Flags(cmd.Flags(), m); err != nil {
			panic(err)
		}
	}
}

// signalContext is cancelled on interrupt so that workers stop and the
// writer is still closed.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printStats(w io.Writer, stats cobindex.Stats) {
	fmt.Fprintf(w, "read %d, skipped %d, written %d\n", stats.Read, stats.Skipped, stats.Written)
}
