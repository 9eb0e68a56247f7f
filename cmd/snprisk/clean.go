package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/table"
)

func newCleanCmd(a *app) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "clean <raw-table>",
		Short: "Clean a raw association catalogue or genome table",
		Long: `Clean fills missing values, normalizes traits and chromosomes, clamps
probabilities, derives effect-size and significance features and drops
redundant columns. Cleaning a cleaned table leaves it unchanged.`,
		Example: `  snprisk clean gwas_catalog.tsv -o catalogue.csv
  snprisk clean genome.txt.gz -o genome.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.loadCleaned(args[0])
			if err != nil {
				return err
			}
			if err := table.WriteFile(outputFile, f); err != nil {
				return err
			}
			a.logger.Info("cleaned table",
				zap.String("input", args[0]),
				zap.String("output", outputFile),
				zap.Int("rows", f.Len()),
				zap.Int("columns", len(f.Names())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "output file (.csv or .tsv; - for stdout)")
	return cmd
}
