package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/synap-insights/internal/analysis"
	"github.com/soaringjerry/synap-insights/internal/services"
)

type inputFlags struct {
	catalog   string
	responses string
}

func newRootCmd() *cobra.Command {
	in := &inputFlags{}
	root := &cobra.Command{
		Use:           "insightctl",
		Short:         "Analyse survey responses offline",
		Long:          `insightctl loads a question catalogue (YAML) and a responses CSV (question_id,respondent_id,answer,submitted_at) and prints analysis results as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&in.catalog, "catalog", "", "question catalogue YAML file")
	root.PersistentFlags().StringVar(&in.responses, "responses", "", "responses CSV file in long format")
	_ = root.MarkPersistentFlagRequired("catalog")
	_ = root.MarkPersistentFlagRequired("responses")

	root.AddCommand(newItemsCmd(in), newCrossTabCmd(in), newCorrelateCmd(in))
	return root
}

// load reads both inputs.
func (in *inputFlags) load() (*services.Catalog, []analysis.Response, error) {
	catalog, err := services.LoadCatalog(in.catalog)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(in.responses)
	if err != nil {
		return nil, nil, fmt.Errorf("open responses: %w", err)
	}
	defer f.Close()
	responses, err := services.ReadLongCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read responses: %w", err)
	}
	return catalog, responses, nil
}

func findQuestion(qs []analysis.Question, id string) (analysis.Question, error) {
	for _, q := range qs {
		if q.ID == id {
			return q, nil
		}
	}
	return analysis.Question{}, fmt.Errorf("question %q not in catalogue", id)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
