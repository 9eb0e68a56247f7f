package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/duckdb"
	"github.com/M0-Anwar/diseases-detection/internal/output"
	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
	"github.com/M0-Anwar/diseases-detection/internal/table"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		modelPath    string
		storePath    string
		outputFormat string
		outputFile   string
		replace      bool
	)

	cmd := &cobra.Command{
		Use:   "batch <genome>...",
		Short: "Estimate the risk of many genomes",
		Long: `Batch scores every genome on a pool of workers and writes one line per
genome in input order. Genomes that fail are reported in the error column
and do not stop the batch. With --store the results are also saved to a
DuckDB database; --replace clears the stored predictions first.`,
		Example: `  snprisk batch --model t2d.model cohort/*.tsv
  snprisk batch --model t2d.model -f csv -o risks.csv --store preds.duckdb cohort/*.tsv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "tab" && outputFormat != "csv" {
				return fmt.Errorf("unknown output format %q", outputFormat)
			}
			if storePath == "" {
				storePath = a.cfg.Store.Path
			}
			if replace && storePath == "" {
				return fmt.Errorf("--replace needs a store (use --store or set store.path)")
			}

			p, err := a.loadModel(modelPath)
			if err != nil {
				return err
			}
			results := a.predictFiles(p, args)

			var out io.Writer = os.Stdout
			if outputFile != "" && outputFile != "-" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := writeBatch(out, outputFormat, results); err != nil {
				return err
			}

			if storePath != "" {
				if err := a.storeBatch(storePath, modelPath, results, replace); err != nil {
					return err
				}
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			a.logger.Info("batch complete",
				zap.Int("genomes", len(results)),
				zap.Int("failed", failed))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&modelPath, "model", "", "trained model file")
	f.StringVar(&storePath, "store", "", "DuckDB file to save results in (default store.path)")
	f.StringVarP(&outputFormat, "output-format", "f", "tab", "output format: tab, csv")
	f.StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	f.BoolVar(&replace, "replace", false, "clear previously stored predictions before saving")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// predictFiles loads every genome, predicts the readable ones in parallel
// and returns one result per path in argument order.
func (a *app) predictFiles(p *pipeline.Predictor, paths []string) []pipeline.WorkResult {
	results := make([]pipeline.WorkResult, len(paths))
	var (
		names   []string
		genomes []*table.Frame
		slots   []int
	)
	for i, path := range paths {
		results[i] = pipeline.WorkResult{Seq: i, Name: sampleName(path)}
		g, err := a.loadGenome(path)
		if err != nil {
			a.logger.Warn("skipping genome", zap.String("file", path), zap.Error(err))
			results[i].Err = err
			continue
		}
		names = append(names, results[i].Name)
		genomes = append(genomes, g)
		slots = append(slots, i)
	}

	for j, r := range p.PredictAll(names, genomes, a.cfg.Workers) {
		i := slots[j]
		results[i].Result = r.Result
		results[i].Err = r.Err
		if r.Err != nil {
			a.logger.Warn("prediction failed", zap.String("file", paths[i]), zap.Error(r.Err))
		}
	}
	return results
}

func writeBatch(w io.Writer, format string, results []pipeline.WorkResult) error {
	if format == "csv" {
		rows := make([]output.BatchRow, len(results))
		for i, r := range results {
			rows[i] = output.NewBatchRow(r.Name, r.Result, r.Err)
		}
		return output.WriteCSV(w, rows)
	}

	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := tw.Write(r.Name, r.Result, r.Err); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return tw.Flush()
}

// storeBatch saves the successful predictions with the model's fingerprint.
// With replace, every earlier prediction in the store is removed first.
func (a *app) storeBatch(storePath, modelPath string, results []pipeline.WorkResult, replace bool) error {
	fp, err := duckdb.StatFile(modelPath)
	if err != nil {
		return fmt.Errorf("fingerprint model: %w", err)
	}
	s, err := duckdb.Open(storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if replace {
		if err := s.ClearPredictions(); err != nil {
			return fmt.Errorf("clear predictions: %w", err)
		}
		a.logger.Info("cleared stored predictions", zap.String("store", s.Path()))
	}

	now := time.Now()
	var preds []duckdb.Prediction
	for _, r := range results {
		if r.Err == nil {
			preds = append(preds, duckdb.NewPrediction(r.Name, r.Result, fp, now))
		}
	}
	if err := s.WritePredictions(preds); err != nil {
		return fmt.Errorf("store predictions: %w", err)
	}
	a.logger.Info("stored predictions",
		zap.String("store", s.Path()),
		zap.Int("count", len(preds)))
	return nil
}
