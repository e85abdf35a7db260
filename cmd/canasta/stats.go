package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/metrics"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dataset statistics",
		Long:  `Display the executive summary: volumes, top products, customers, and categories.`,
	}

	cmd.AddCommand(summaryStatsCmd())
	cmd.AddCommand(basketStatsCmd())
	cmd.AddCommand(timeseriesCmd())
	cmd.AddCommand(correlationCmd())

	return cmd
}

func summaryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Executive summary of the dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			summary, err := a.metrics.Summary(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Executive summary"))
			fmt.Printf("Transactions: %d | Units sold: %d | Customers: %d | Products: %d\n\n",
				summary.NumTransactions, summary.TotalUnits, summary.UniqueCustomers, summary.UniqueProducts)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, cli.TableHeaderStyle.Render("Top products")+"\t")
			for _, entry := range summary.TopProducts {
				fmt.Fprintf(w, "%s\t%d\n", entry.Key, entry.Count)
			}

			fmt.Fprintln(w, "\n"+cli.TableHeaderStyle.Render("Top categories")+"\t")
			for _, cat := range summary.TopCategories {
				fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", cat.Name, cat.Count, cat.Share*100)
			}

			fmt.Fprintln(w, "\n"+cli.TableHeaderStyle.Render("Peak days")+"\t")
			for _, day := range summary.PeakDays {
				fmt.Fprintf(w, "%s\t%d\n", day.Date, day.Transactions)
			}
			return nil
		},
	}
}

func basketStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baskets",
		Short: "Basket size distribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			stats, err := a.metrics.Baskets(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Basket size distribution"))
			fmt.Printf("count=%d mean=%.2f std=%.2f mode=%.0f\n", stats.Count, stats.Mean, stats.StdDev, stats.Mode)
			fmt.Printf("min=%.0f q25=%.0f median=%.0f q75=%.0f max=%.0f\n", stats.Min, stats.Q25, stats.Median, stats.Q75, stats.Max)
			fmt.Printf("IQR outliers: %d\n", stats.Outliers)
			return nil
		},
	}
}

func timeseriesCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "timeseries",
		Short: "Transactions and units per time bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			points, err := a.metrics.TimeSeries(cmd.Context(), metrics.Level(level))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "bucket\ttransactions\tunits\n")
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%d\t%d\n", p.Bucket, p.Transactions, p.TotalProducts)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "daily", "bucket granularity (daily, weekly, monthly)")
	return cmd
}

func correlationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correlation",
		Short: "Pearson correlations between customer feature dimensions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			corr, err := a.metrics.FeatureCorrelation(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Feature correlation"))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprint(w, "feature")
			for _, col := range corr.Columns {
				fmt.Fprintf(w, "\t%s", col)
			}
			fmt.Fprintln(w)
			for i, row := range corr.Matrix {
				fmt.Fprint(w, corr.Columns[i])
				for _, v := range row {
					fmt.Fprintf(w, "\t%.3f", v)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}
