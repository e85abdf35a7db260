package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/ingest"
)

func ingestCmd() *cobra.Command {
	var store int
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Append a batch of raw transactions to the store",
		Long: `Clean and normalize a raw pipe-delimited transaction batch and persist it
as a new file in the transaction store. Pass "-" to read from stdin. Input has
3 or 4 columns; 3-column input takes the --store id for every row.

The new file is picked up by the next refresh.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if args[0] == "-" {
				raw, err = io.ReadAll(os.Stdin)
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return common.NewUserError("could not read transaction batch "+args[0], err)
			}

			pipeline := ingest.New(transactionsDir())
			result, err := pipeline.Process(string(raw), store)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Ingested %d/%d rows (%d rejected)",
				result.CleanedRows, result.InitialRows, result.RejectedRows)))
			if result.File != "" {
				fmt.Println(cli.SubtleStyle.Render("  → " + result.File))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&store, "store", 1, "default store id for 3-column input")
	return cmd
}
