package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the dataset from disk",
		Long: `Re-read the category catalog, product-category map, and all transaction
files, replacing the in-memory state only if the full load succeeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			if err := a.repo.Refresh(cmd.Context()); err != nil {
				return err
			}

			snap, err := a.repo.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Loaded %d transactions (%d product lines, %d rows dropped)",
				len(snap.Transactions), len(snap.Exploded), snap.DroppedRows)))
			return nil
		},
	}
}
