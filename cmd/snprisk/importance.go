package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/M0-Anwar/diseases-detection/internal/evaluate"
	"github.com/M0-Anwar/diseases-detection/internal/output"
	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

// stageImportances picks the ranked importances of one stage of the model.
func stageImportances(m *pipeline.Model, stage string) ([]evaluate.Importance, error) {
	switch stage {
	case "variant":
		return m.Variant.Report.Importances, nil
	case "person":
		if m.State() != pipeline.TwoStage {
			return nil, fmt.Errorf("model has no person classifier (mode %s)", m.State())
		}
		return m.Person.Report.Importances, nil
	}
	return nil, fmt.Errorf("unknown stage %q (want variant or person)", stage)
}

func newImportanceCmd(a *app) *cobra.Command {
	var (
		modelPath string
		top       int
		stage     string
	)

	cmd := &cobra.Command{
		Use:   "importance",
		Short: "List the most important features of a trained model",
		Example: `  snprisk importance --model t2d.model
  snprisk importance --model t2d.model --stage person --top 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.Load(modelPath)
			if err != nil {
				return err
			}
			imps, err := stageImportances(m, stage)
			if err != nil {
				return err
			}
			return output.WriteImportances(os.Stdout, imps, top)
		},
	}

	f := cmd.Flags()
	f.StringVar(&modelPath, "model", "", "trained model file")
	f.IntVar(&top, "top", 20, "number of features to list (0 = all)")
	f.StringVar(&stage, "stage", "variant", "classifier: variant, person")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
