package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

// loadModel reads a saved model and wraps it in a predictor configured from
// the loaded settings.
func (a *app) loadModel(path string) (*pipeline.Predictor, error) {
	m, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	p := pipeline.NewPredictor(m)
	p.SetThreshold(a.cfg.PredictThreshold())
	p.SetImputation(a.cfg.Imputation())
	p.SetLogger(a.logger)
	a.logger.Debug("loaded model",
		zap.String("path", path),
		zap.String("target", m.TargetCondition),
		zap.Stringer("mode", m.State()))
	return p, nil
}

// checkDisease refuses to score a condition the model was not trained for.
func checkDisease(m *pipeline.Model, disease string) error {
	if disease == "" {
		return nil
	}
	if want := clean.NormalizeTrait(disease); want != m.TargetCondition {
		return fmt.Errorf("model was trained for %q, not %q", m.TargetCondition, want)
	}
	return nil
}

func newPredictCmd(a *app) *cobra.Command {
	var (
		modelPath string
		disease   string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "predict <genome>",
		Short: "Estimate the risk of one genome",
		Example: `  snprisk predict --model t2d.model genome.tsv
  snprisk predict --model t2d.model --disease "type 2 diabetes" --json genome.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadModel(modelPath)
			if err != nil {
				return err
			}
			if err := checkDisease(p.Model(), disease); err != nil {
				return err
			}
			genome, err := a.loadGenome(args[0])
			if err != nil {
				return err
			}
			res, err := p.Predict(genome)
			if err != nil {
				return fmt.Errorf("predict %s: %w", args[0], err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Explanation)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&modelPath, "model", "", "trained model file")
	f.StringVar(&disease, "disease", "", "condition to score; must match the model")
	f.BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
