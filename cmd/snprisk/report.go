package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/duckdb"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		storePath string
		target    string
		sample    string
		top       int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize predictions saved by batch --store",
		Long: `Report summarizes the stored predictions of one condition or lists every
prediction of one sample. The Model column reads "changed" when the model
file no longer matches the one the prediction was made with, and "missing"
when it is gone.`,
		Example: `  snprisk report --store preds.duckdb --target "type 2 diabetes"
  snprisk report --store preds.duckdb --sample NA12878`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storePath == "" {
				storePath = a.cfg.Store.Path
			}
			if storePath == "" {
				return fmt.Errorf("no store given (use --store or set store.path)")
			}
			if (target == "") == (sample == "") {
				return fmt.Errorf("give exactly one of --target or --sample")
			}

			s, err := duckdb.Open(storePath)
			if err != nil {
				return err
			}
			defer s.Close()

			w := bufio.NewWriter(os.Stdout)
			if sample != "" {
				preds, err := s.LookupSample(sample)
				if err != nil {
					return err
				}
				writePredictions(w, preds)
				return w.Flush()
			}

			target = clean.NormalizeTrait(target)
			cats, err := s.SummarizeCategories(target)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "#Category\tCount\tMean_risk")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%d\t%.4f\n", c.Category, c.Count, c.MeanRisk)
			}
			if top > 0 {
				preds, err := s.TopRisk(target, top)
				if err != nil {
					return err
				}
				fmt.Fprintln(w)
				writePredictions(w, preds)
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&storePath, "store", "", "DuckDB prediction store (default store.path)")
	f.StringVar(&target, "target", "", "summarize one condition")
	f.StringVar(&sample, "sample", "", "list every prediction for one sample")
	f.IntVar(&top, "top", 10, "with --target, also list the highest-risk samples")
	return cmd
}

func writePredictions(w io.Writer, preds []duckdb.Prediction) {
	fmt.Fprintln(w, "#Sample\tTarget_condition\tMode\tRisk_score\tRisk_category\tPredicted_at\tModel")
	for _, p := range preds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%s\t%s\t%s\n",
			p.Sample, p.TargetCondition, p.Mode, p.RiskScore, p.RiskCategory,
			p.PredictedAt.UTC().Format("2006-01-02T15:04:05Z"),
			modelStatus(p.Model))
	}
}

// modelStatus compares a stored model fingerprint with the file on disk.
func modelStatus(stored duckdb.FileFingerprint) string {
	current, err := duckdb.StatFile(stored.Path)
	switch {
	case err != nil:
		return "missing"
	case !current.Same(stored):
		return "changed"
	default:
		return "current"
	}
}
