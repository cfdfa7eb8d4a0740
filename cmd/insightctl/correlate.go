package main

import (
	"github.com/spf13/cobra"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

type correlateOutput struct {
	analysis.QuestionCorrelation
	Charts []analysis.ScatterPoint `json:"charts"`
}

func newCorrelateCmd(in *inputFlags) *cobra.Command {
	var x, y string
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Pearson correlation between two questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, responses, err := in.load()
			if err != nil {
				return err
			}
			questions := catalog.Questions()
			qx, err := findQuestion(questions, x)
			if err != nil {
				return err
			}
			qy, err := findQuestion(questions, y)
			if err != nil {
				return err
			}
			res := analysis.CorrelateQuestions(analysis.ForQuestion(responses, qx.ID), analysis.ForQuestion(responses, qy.ID), qx, qy)
			return printJSON(cmd.OutOrStdout(), correlateOutput{QuestionCorrelation: res, Charts: analysis.ScatterChart(res)})
		},
	}
	cmd.Flags().StringVar(&x, "x", "", "x axis question id")
	cmd.Flags().StringVar(&y, "y", "", "y axis question id")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}
