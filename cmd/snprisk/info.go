package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/M0-Anwar/diseases-detection/internal/duckdb"
	"github.com/M0-Anwar/diseases-detection/internal/evaluate"
	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

type stageInfo struct {
	Features  int     `yaml:"features"`
	Trees     int     `yaml:"trees"`
	TrainRows int     `yaml:"train_rows"`
	TestRows  int     `yaml:"test_rows"`
	Positives int     `yaml:"positives"`
	Negatives int     `yaml:"negatives"`
	Accuracy  float64 `yaml:"accuracy"`
	ROCAUC    float64 `yaml:"roc_auc"`
}

type modelInfo struct {
	File            string     `yaml:"file"`
	Size            int64      `yaml:"size"`
	Modified        string     `yaml:"modified"`
	TargetCondition string     `yaml:"target_condition"`
	Mode            string     `yaml:"mode"`
	Variant         stageInfo  `yaml:"variant"`
	Person          *stageInfo `yaml:"person,omitempty"`
}

func newStageInfo(features, trees int, r evaluate.Report) stageInfo {
	return stageInfo{
		Features:  features,
		Trees:     trees,
		TrainRows: r.TrainRows,
		TestRows:  r.TestRows,
		Positives: r.Positives,
		Negatives: r.Negatives,
		Accuracy:  r.Accuracy,
		ROCAUC:    r.ROCAUC,
	}
}

func describeModel(m *pipeline.Model, fp duckdb.FileFingerprint) modelInfo {
	info := modelInfo{
		File:            fp.Path,
		Size:            fp.Size,
		Modified:        fp.ModTime.UTC().Format(time.RFC3339),
		TargetCondition: m.TargetCondition,
		Mode:            m.State().String(),
		Variant: newStageInfo(len(m.Variant.Features),
			len(m.Variant.Model.Trees), m.Variant.Report),
	}
	if m.State() == pipeline.TwoStage {
		s := newStageInfo(len(m.Person.Columns), len(m.Person.Model.Trees), m.Person.Report)
		info.Person = &s
	}
	return info
}

func newInfoCmd(a *app) *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := duckdb.StatFile(modelPath)
			if err != nil {
				return fmt.Errorf("stat model: %w", err)
			}
			m, err := pipeline.Load(modelPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(describeModel(m, fp))
			if err != nil {
				return fmt.Errorf("marshaling model info: %w", err)
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "trained model file")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
