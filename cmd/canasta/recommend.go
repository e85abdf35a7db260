package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/model"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Product recommendations from the mined rule set",
	}

	cmd.AddCommand(recommendProductCmd())
	cmd.AddCommand(recommendCustomerCmd())

	return cmd
}

func recommendProductCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "product <code>",
		Short: "Products frequently bought with a given product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(true)

			recs, err := a.recommender.ForProduct(cmd.Context(), args[0], top)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println(cli.FormatWarning("No recommendations for product " + args[0]))
				return nil
			}
			printRecommendations(recs)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "number of recommendations")
	return cmd
}

func recommendCustomerCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "customer <id>",
		Short: "Products a customer is likely to buy next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(true)

			recs, err := a.recommender.ForCustomer(cmd.Context(), args[0], top)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println(cli.FormatWarning("No recommendations for customer " + args[0]))
				return nil
			}
			printRecommendations(recs)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "number of recommendations")
	return cmd
}

func printRecommendations(recs []model.AssociationRule) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "product\tcategory\tbecause of\tlift\tconfidence\n")
	for _, rule := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.3f\n",
			rule.Consequent, rule.ConsequentCategory, rule.Antecedent, rule.Lift, rule.Confidence)
	}
}
