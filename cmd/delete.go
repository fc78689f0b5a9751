package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/tulibraries/cobindex/ingest"
)

// DeleteMain is wrapped by NewDeleteCommand and only exported for testing
// purposes.
var DeleteMain *ingest.Main

// NewDeleteCommand returns a new cobra command wrapping DeleteMain.
func NewDeleteCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	DeleteMain = ingest.NewMain()
	var suppress bool
	deleteCommand := &cobra.Command{
		Use:   "delete <path|->",
		Short: "delete - apply OAI-PMH deletions to Solr",
		Long: `Remove the records an OAI-PMH response marks deleted from Solr, or with
--suppress keep them and flag their items suppressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawSource(stdin, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			stats, err := DeleteMain.Delete(ctx, raw, suppress)
			printStats(stdout, stats)
			return err
		},
	}
	deleteCommand.Flags().BoolVar(&suppress, "suppress", false, "Flag the items of deleted records suppressed instead of deleting them.")
	mustFlags(deleteCommand, DeleteMain)
	return deleteCommand
}

// NewCommitCommand returns a cobra command that only commits.
func NewCommitCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	m := ingest.NewMain()
	commitCommand := &cobra.Command{
		Use:   "commit",
		Short: "commit - commit pending Solr updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.CommitOnly()
		},
	}
	mustFlags(commitCommand, m)
	return commitCommand
}

func init() {
	subcommandFns["delete"] = NewDeleteCommand
	subcommandFns["commit"] = NewCommitCommand
}
