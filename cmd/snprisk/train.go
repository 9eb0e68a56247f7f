package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/person"
	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
	"github.com/M0-Anwar/diseases-detection/internal/table"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		cataloguePath string
		target        string
		cohortPath    string
		outputFile    string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a risk model for one condition",
		Long: `Train fits the variant classifier for --target on the catalogue. With
--cohort it also fits the person classifier on the labeled genomes listed in
the manifest (a tab-delimited file with "path" and "label" columns, label 1
for affected). When the cohort has a single class the variant-only model is
saved and a warning is logged.`,
		Example: `  snprisk train --catalogue catalogue.csv --target "Type 2 diabetes" -o t2d.model
  snprisk train --catalogue catalogue.csv --target asthma --cohort cohort.tsv -o asthma.model`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue, err := a.loadCleaned(cataloguePath)
			if err != nil {
				return err
			}

			tr := pipeline.NewTrainer()
			tr.SetLogger(a.logger)
			tr.SetVariantOptions(a.cfg.VariantOptions())
			tr.SetPersonOptions(a.cfg.PersonOptions())
			tr.SetThreshold(a.cfg.TrainThreshold())
			tr.SetImputation(a.cfg.Imputation())
			tr.SetWorkers(a.cfg.Workers)

			m, err := tr.FitVariantClassifier(catalogue, target)
			if err != nil {
				return fmt.Errorf("train variant classifier: %w", err)
			}

			if cohortPath != "" {
				m, err = a.trainPerson(tr, m, cohortPath)
				if err != nil {
					return err
				}
			}

			if err := pipeline.Save(outputFile, m); err != nil {
				return err
			}
			a.logger.Info("saved model",
				zap.String("path", outputFile),
				zap.String("target", m.TargetCondition),
				zap.Stringer("mode", m.State()))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cataloguePath, "catalogue", "", "association catalogue (raw or cleaned)")
	f.StringVar(&target, "target", "", "target condition")
	f.StringVar(&cohortPath, "cohort", "", "labeled cohort manifest for the person classifier")
	f.StringVarP(&outputFile, "output", "o", "", "model output file")
	for _, name := range []string{"catalogue", "target", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// trainPerson fits the person classifier. A cohort with one class is not
// fatal: the variant-only model is kept.
func (a *app) trainPerson(tr *pipeline.Trainer, m *pipeline.Model, cohortPath string) (*pipeline.Model, error) {
	entries, err := readCohort(cohortPath)
	if err != nil {
		return nil, err
	}
	genomes := make([]*table.Frame, len(entries))
	labels := make([]int, len(entries))
	for i, e := range entries {
		if genomes[i], err = a.loadGenome(e.Path); err != nil {
			return nil, err
		}
		labels[i] = e.Label
	}

	two, err := tr.FitPersonClassifier(m, genomes, labels)
	var ice *person.InsufficientClassVarianceError
	switch {
	case errors.As(err, &ice):
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("train person classifier: %w", err)
	}
	return two, nil
}
