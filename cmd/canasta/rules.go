package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/common"
)

func rulesCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Mine and list association rules",
		Long: `Mine directional product-pair association rules over the transaction set
and list them sorted by lift. The engine keeps the full rule set; --top only
limits what is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(true)

			mined, err := a.rules.Mine(cmd.Context())
			if err != nil {
				return err
			}
			if len(mined.Rules) == 0 {
				return common.NewUserError(
					"no rules met the thresholds; lower rules.min_support or rules.min_confidence",
					common.ErrNoRules)
			}

			fmt.Println(cli.FormatTitle("Association rules"))
			fmt.Printf("Frequent items: %d | Rules: %d\n", len(mined.FrequentItems), len(mined.Rules))
			fmt.Println(cli.InfoStyle.Render("Lift > 1 means the products are bought together more often than chance") + "\n")

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "rule\tcategories\tlift\tconfidence\tsupport\n")
			for i, rule := range mined.Rules {
				if top > 0 && i == top {
					break
				}
				fmt.Fprintf(w, "%s → %s\t%s → %s\t%.3f\t%.3f\t%.4f\n",
					rule.Antecedent, rule.Consequent,
					rule.AntecedentCategory, rule.ConsequentCategory,
					rule.Lift, rule.Confidence, rule.Support)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "number of rules to print (0 for all)")
	return cmd
}
