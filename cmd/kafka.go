package cmd

import (
	"io"

	"github.com/pilosa/pilosa/logger"
	"github.com/spf13/cobra"
	"github.com/tulibraries/cobindex/ingest"
	"github.com/tulibraries/cobindex/kafka"
)

// KafkaMain is wrapped by NewKafkaCommand and only exported for testing
// purposes.
var KafkaMain *kafka.Main

// NewKafkaCommand returns a new cobra command wrapping KafkaMain.
func NewKafkaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkaMain = kafka.NewMain()
	m := ingest.NewMain()
	kafkaCommand := &cobra.Command{
		Use:   "ingest-kafka",
		Short: "ingest-kafka - index MARCXML messages from Kafka into Solr",
		Long: `Consume MARCXML collections from Kafka topics and index them into Solr.
Offsets are committed once the documents are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			src, err := KafkaMain.Source(logger.NewStandardLogger(stderr))
			if err != nil {
				return err
			}
			defer func() {
				if cerr := src.Close(); err == nil {
					err = cerr
				}
			}()
			ctx, cancel := signalContext()
			defer cancel()
			stats, err := m.Run(ctx, src)
			printStats(stdout, stats)
			return err
		},
	}
	mustFlags(kafkaCommand, KafkaMain, m)
	return kafkaCommand
}

func init() {
	subcommandFns["ingest-kafka"] = NewKafkaCommand
}
