package cmd

import (
	"context"
	"io"

	"github.com/pilosa/pilosa/logger"
	"github.com/spf13/cobra"
	"github.com/tulibraries/cobindex/http"
	"github.com/tulibraries/cobindex/ingest"
)

// HTTPMain is wrapped by NewHTTPCommand and only exported for testing
// purposes.
var HTTPMain *http.Main

// NewHTTPCommand returns a new cobra command wrapping HTTPMain.
func NewHTTPCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	HTTPMain = http.NewMain()
	m := ingest.NewMain()
	httpCommand := &cobra.Command{
		Use:   "ingest-http",
		Short: "ingest-http - index MARCXML collections posted over HTTP",
		Long: `Listen for POST requests whose bodies are MARCXML collections or OAI-PMH
responses and index them into Solr until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewStandardLogger(stderr)
			src, err := HTTPMain.Source(log)
			if err != nil {
				return err
			}
			log.Printf("listening on %s", src.Addr())
			// Closing on interrupt lets the collections already received
			// finish indexing.
			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				<-ctx.Done()
				src.Close()
			}()
			stats, err := m.Run(context.Background(), src)
			printStats(stdout, stats)
			return err
		},
	}
	mustFlags(httpCommand, HTTPMain, m)
	return httpCommand
}

func init() {
	subcommandFns["ingest-http"] = NewHTTPCommand
}
