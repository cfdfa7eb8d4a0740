package main

import (
	"github.com/spf13/cobra"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

type crossTabOutput struct {
	analysis.CrossTabResult
	Charts []analysis.StackedRow `json:"charts"`
}

func newCrossTabCmd(in *inputFlags) *cobra.Command {
	var a, b string
	cmd := &cobra.Command{
		Use:   "crosstab",
		Short: "Cross-tabulate two questions over shared respondents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, responses, err := in.load()
			if err != nil {
				return err
			}
			questions := catalog.Questions()
			qa, err := findQuestion(questions, a)
			if err != nil {
				return err
			}
			qb, err := findQuestion(questions, b)
			if err != nil {
				return err
			}
			res := analysis.CrossTab(analysis.ForQuestion(responses, qa.ID), analysis.ForQuestion(responses, qb.ID), qa, qb)
			return printJSON(cmd.OutOrStdout(), crossTabOutput{CrossTabResult: res, Charts: analysis.CrossTabChart(res)})
		},
	}
	cmd.Flags().StringVar(&a, "a", "", "row question id")
	cmd.Flags().StringVar(&b, "b", "", "column question id")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}
