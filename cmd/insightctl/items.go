package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

type itemsOutput struct {
	SurveySetID string                          `json:"survey_set_id,omitempty"`
	Items       []analysis.FrequencyResult      `json:"items"`
	Categories  []analysis.CategoryResult       `json:"categories"`
	Charts      map[string][]analysis.NameValue `json:"charts"`
}

func newItemsCmd(in *inputFlags) *cobra.Command {
	var setID string
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Frequency distribution of every question",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, responses, err := in.load()
			if err != nil {
				return err
			}
			questions := catalog.Questions()
			if setID != "" {
				set := catalog.Set(setID)
				if set == nil {
					return fmt.Errorf("survey set %q not in catalogue", setID)
				}
				questions = set.AsQuestions()
			}
			responses, questions = analysis.Read(responses, questions)

			out := itemsOutput{
				SurveySetID: setID,
				Items:       make([]analysis.FrequencyResult, 0, len(questions)),
				Categories:  analysis.SummarizeCategories(questions, responses),
				Charts:      map[string][]analysis.NameValue{},
			}
			for _, q := range questions {
				f := analysis.Aggregate(responses, q)
				out.Items = append(out.Items, f)
				if f.Buckets != nil {
					out.Charts[q.ID] = analysis.FrequencyChart(f)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&setID, "set", "", "restrict to one survey set")
	return cmd
}
