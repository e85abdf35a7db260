package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/model"
)

func segmentsCmd() *cobra.Command {
	var (
		k            int
		seed         int64
		keepOutliers bool
	)
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Cluster customers into behavioral segments",
		Long: `Filter outliers, standardize the customer feature matrix, run k-means,
and print each cluster with its heuristic description and recommendations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			opts := segmentOptions()
			if cmd.Flags().Changed("k") {
				opts.K = k
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if keepOutliers {
				opts.RemoveOutliers = false
			}

			result, err := a.segments.Segment(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Customer segments"))
			fmt.Printf("k=%d | customers retained=%d | outliers removed=%d\n\n",
				result.K, result.TotalCustomers, result.OutliersRemoved)

			for _, cluster := range result.Clusters {
				fmt.Printf("Cluster %d — %d customers\n", cluster.Index, cluster.Size)
				fmt.Printf("  %s\n", cluster.Description)
				fmt.Printf("  centroid:")
				for d, name := range model.FeatureNames {
					fmt.Printf(" %s=%.2f", name, cluster.Centroid[d])
				}
				fmt.Println()
				for _, rec := range cluster.Recommendations {
					fmt.Println(cli.SubtleStyle.Render("   - " + rec))
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 4, "number of clusters")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for reproducible clustering")
	cmd.Flags().BoolVar(&keepOutliers, "keep-outliers", false, "skip IQR outlier filtering")
	return cmd
}
