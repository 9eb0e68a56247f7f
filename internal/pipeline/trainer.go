package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/person"
	"github.com/M0-Anwar/diseases-detection/internal/snp"
	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
)

// Trainer fits pipeline models.
type Trainer struct {
	variantOpts snp.Options
	personOpts  person.Options
	threshold   snp.Threshold
	imputation  snp.Imputation
	workers     int
	logger      *zap.Logger
}

// NewTrainer creates a trainer with default classifier options, the
// inclusive >= 0.5 relevance rule and query-median imputation.
func NewTrainer() *Trainer {
	return &Trainer{
		variantOpts: snp.DefaultOptions(),
		personOpts:  person.DefaultOptions(),
		threshold:   snp.TrainingThreshold,
		imputation:  snp.QueryMedians,
		logger:      zap.NewNop(),
	}
}

// SetVariantOptions sets the Stage 1 fitting options.
func (t *Trainer) SetVariantOptions(o snp.Options) {
	t.variantOpts = o
}

// SetPersonOptions sets the Stage 2 fitting options.
func (t *Trainer) SetPersonOptions(o person.Options) {
	t.personOpts = o
}

// SetThreshold sets the relevance rule used to build person features.
func (t *Trainer) SetThreshold(th snp.Threshold) {
	t.threshold = th
}

// SetImputation sets which medians fill gaps when scoring cohort genomes.
func (t *Trainer) SetImputation(m snp.Imputation) {
	t.imputation = m
}

// SetWorkers sets the number of goroutines scoring cohort genomes.
// Zero means runtime.NumCPU().
func (t *Trainer) SetWorkers(n int) {
	t.workers = n
}

// SetLogger sets the logger for warning and info messages.
func (t *Trainer) SetLogger(l *zap.Logger) {
	t.logger = l
}

// FitVariantClassifier fits Stage 1 on a cleaned catalogue and returns a new
// Stage1Only model for target.
func (t *Trainer) FitVariantClassifier(catalogue *table.Frame, target string) (*Model, error) {
	required := append([]string{variant.DiseaseTrait}, variant.Canonical...)
	if err := variant.Require(catalogue, required...); err != nil {
		return nil, err
	}
	opts := t.variantOpts
	opts.Logger = t.logger
	c, err := snp.Fit(catalogue, target, opts)
	if err != nil {
		return nil, err
	}
	return &Model{TargetCondition: c.Target, Variant: c}, nil
}

// FitPersonClassifier fits Stage 2 on a labeled cohort of cleaned genomes and
// returns a new TwoStage model. On failure it returns m itself alongside the
// error, so callers can keep serving the previous model.
func (t *Trainer) FitPersonClassifier(m *Model, genomes []*table.Frame, labels []int) (*Model, error) {
	if len(genomes) != len(labels) {
		return m, fmt.Errorf("got %d labels for %d genomes", len(labels), len(genomes))
	}

	vectors, err := t.personDataset(m, genomes)
	if err != nil {
		return m, err
	}

	opts := t.personOpts
	opts.Logger = t.logger
	pc, err := person.Fit(vectors, labels, opts)
	if err != nil {
		var ice *person.InsufficientClassVarianceError
		if errors.As(err, &ice) {
			t.logger.Warn("person classifier not trained, keeping variant-only model",
				zap.Ints("classes", ice.Classes))
		}
		return m, err
	}
	return &Model{
		TargetCondition: m.TargetCondition,
		Variant:         m.Variant,
		Person:          pc,
		PersonTrained:   true,
	}, nil
}

// personDataset scores every genome with Stage 1 and aggregates its relevant
// variants, preserving cohort order.
func (t *Trainer) personDataset(m *Model, genomes []*table.Frame) ([]person.Features, error) {
	vectors := make([]person.Features, len(genomes))
	err := forEach(len(genomes), t.workers, func(i int) error {
		a, err := assess(m.Variant, genomes[i], t.threshold, t.imputation)
		if err != nil {
			return fmt.Errorf("genome %d: %w", i+1, err)
		}
		vectors[i] = person.Aggregate(a.relevant, a.relevantScores)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("built person dataset", zap.Int("people", len(vectors)))
	return vectors, nil
}
