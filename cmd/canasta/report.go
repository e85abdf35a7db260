package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and browse business-insights reports",
	}

	cmd.AddCommand(generateReportCmd())
	cmd.AddCommand(reportHistoryCmd())

	return cmd
}

func generateReportCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the business-insights report",
		Long: `Run segmentation and rule mining, write the combined report as text and
JSON under the results directory, and archive the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			opts := segmentOptions()
			if cmd.Flags().Changed("k") {
				opts.K = k
			}

			rep, err := a.reports.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()
			if err := archive.Migrate(cmd.Context()); err != nil {
				return err
			}

			run := &service.ReportRun{
				CreatedAt:       rep.GeneratedAt,
				K:               rep.Segmentation.K,
				RuleCount:       rep.RuleCount,
				ClusterCount:    len(rep.Segmentation.Clusters),
				OutliersRemoved: rep.Segmentation.OutliersRemoved,
				TextPath:        rep.TextPath,
				JSONPath:        rep.JSONPath,
			}
			if err := archive.SaveRun(cmd.Context(), run); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Report generated"))
			fmt.Println(cli.SubtleStyle.Render("  text: " + rep.TextPath))
			fmt.Println(cli.SubtleStyle.Render("  json: " + rep.JSONPath))
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 4, "number of clusters for segmentation")
	return cmd
}

func reportHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()
			if err := archive.Migrate(cmd.Context()); err != nil {
				return err
			}

			runs, err := archive.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(cli.FormatWarning("No reports generated yet"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "id\tgenerated\tk\trules\tclusters\toutliers removed\n")
			for _, run := range runs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\n",
					run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"),
					run.K, run.RuleCount, run.ClusterCount, run.OutliersRemoved)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}
