package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/person"
	"github.com/M0-Anwar/diseases-detection/internal/snp"
	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
)

// NeutralRisk is the Stage1Only risk of a genome with no scored variants.
const NeutralRisk = 0.5

// RecommendationRisk is the risk above which recommendations are listed.
const RecommendationRisk = 0.6

// Category is a coarse risk level.
type Category string

// Risk categories.
const (
	Low      Category = "Low"
	Moderate Category = "Moderate"
	High     Category = "High"
	VeryHigh Category = "Very High"
)

// Categorize maps a risk score to its category.
func Categorize(risk float64) Category {
	switch {
	case risk < 0.2:
		return Low
	case risk < 0.4:
		return Moderate
	case risk < 0.6:
		return High
	}
	return VeryHigh
}

// PredictionError wraps a failure while scoring a genome.
type PredictionError struct {
	Op  string
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction error: %s: %v", e.Op, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one prediction.
type Result struct {
	TargetCondition      string   `json:"target_condition"`
	Mode                 State    `json:"mode"`
	RiskScore            float64  `json:"risk_score"`
	RiskCategory         Category `json:"risk_category"`
	RelevantVariantCount int      `json:"relevant_variant_count"`
	TotalVariants        int      `json:"total_variants"`
	RelevantPercentage   float64  `json:"relevant_percentage"`
	Explanation          string   `json:"explanation"`
	Warnings             []string `json:"warnings,omitempty"`
}

// Predictor scores genomes against a model. It only reads the model, so one
// Predictor may be used from several goroutines.
type Predictor struct {
	model      *Model
	threshold  snp.Threshold
	imputation snp.Imputation
	logger     *zap.Logger
}

// NewPredictor creates a predictor using the strict > 0.5 relevance rule and
// the genome's own medians for imputation.
func NewPredictor(m *Model) *Predictor {
	return &Predictor{
		model:      m,
		threshold:  snp.PredictionThreshold,
		imputation: snp.QueryMedians,
		logger:     zap.NewNop(),
	}
}

// SetThreshold sets the variant relevance rule.
func (p *Predictor) SetThreshold(t snp.Threshold) {
	p.threshold = t
}

// SetImputation sets which medians fill missing numeric values.
func (p *Predictor) SetImputation(m snp.Imputation) {
	p.imputation = m
}

// SetLogger sets the logger for warning and info messages.
func (p *Predictor) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Model returns the model being served.
func (p *Predictor) Model() *Model {
	return p.model
}

// assessment is the Stage 1 view of one genome.
type assessment struct {
	scores         []float64
	relevant       []variant.Record
	relevantScores []float64
	warnings       []*snp.UnrecognizedFeatureWarning
}

func assess(c *snp.Classifier, genome *table.Frame, t snp.Threshold, imp snp.Imputation) (*assessment, error) {
	if err := variant.Validate(genome); err != nil {
		return nil, err
	}
	scores, warnings, err := c.Score(genome, imp)
	if err != nil {
		var se *variant.SchemaError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &PredictionError{Op: "score variants", Err: err}
	}
	records := variant.Records(genome)
	a := &assessment{scores: scores, warnings: warnings}
	for _, i := range t.Filter(scores) {
		a.relevant = append(a.relevant, records[i])
		a.relevantScores = append(a.relevantScores, scores[i])
	}
	return a, nil
}

// Predict scores one cleaned genome. It never modifies the model.
func (p *Predictor) Predict(genome *table.Frame) (*Result, error) {
	a, err := assess(p.model.Variant, genome, p.threshold, p.imputation)
	if err != nil {
		return nil, err
	}
	for _, w := range a.warnings {
		p.logger.Warn("ignoring unrecognized input", zap.Error(w))
	}

	state := p.model.State()
	var risk float64
	switch state {
	case TwoStage:
		features := person.Aggregate(a.relevant, a.relevantScores)
		risk = p.model.Person.ScoreFeatures(features)
	default:
		risk = NeutralRisk
		if len(a.scores) > 0 {
			risk, err = stats.Mean(a.scores)
			if err != nil {
				return nil, &PredictionError{Op: "average variant scores", Err: err}
			}
		}
	}
	if math.IsNaN(risk) {
		return nil, &PredictionError{Op: "score person", Err: errors.New("risk score is NaN")}
	}

	res := &Result{
		TargetCondition:      p.model.TargetCondition,
		Mode:                 state,
		RiskScore:            risk,
		RiskCategory:         Categorize(risk),
		RelevantVariantCount: len(a.relevant),
		TotalVariants:        len(a.scores),
		Explanation:          Explain(p.model.TargetCondition, a.relevant, risk),
	}
	if len(a.scores) > 0 {
		res.RelevantPercentage = 100 * float64(len(a.relevant)) / float64(len(a.scores))
	}
	for _, w := range a.warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}
	p.logger.Debug("predicted risk",
		zap.String("mode", state.String()),
		zap.Float64("risk", risk),
		zap.Int("relevant", len(a.relevant)),
		zap.Int("total", len(a.scores)))
	return res, nil
}

// Explain renders the human-readable summary of a prediction: the relevant
// variant count, up to three variants with the largest effect, the risk and
// its category, and recommendations for risks above RecommendationRisk.
func Explain(target string, relevant []variant.Record, risk float64) string {
	var lines []string
	if len(relevant) > 0 {
		lines = append(lines,
			fmt.Sprintf("Found %d SNPs associated with %s", len(relevant), target),
			"Top contributing SNPs by effect size:")
		for i, r := range topByEffect(relevant, 3) {
			lines = append(lines, fmt.Sprintf("  %d. Effect: %.3f, P-value: %.2e", i+1, r.Midpoint, r.PValue))
		}
	} else {
		lines = append(lines, fmt.Sprintf("No strong SNP associations found for %s", target))
	}
	lines = append(lines,
		fmt.Sprintf("Overall predicted risk: %.1f%%", risk*100),
		fmt.Sprintf("Risk category: %s", Categorize(risk)))
	if risk > RecommendationRisk {
		lines = append(lines,
			"\nRecommendations:",
			"  - Consider genetic counseling",
			"  - Regular health screenings recommended",
			"  - Maintain healthy lifestyle")
	}
	return strings.Join(lines, "\n")
}

// topByEffect returns up to n records with the largest midpoints, keeping
// input order among equal midpoints. Records without a midpoint are skipped.
func topByEffect(records []variant.Record, n int) []variant.Record {
	var withEffect []variant.Record
	for _, r := range records {
		if !math.IsNaN(r.Midpoint) {
			withEffect = append(withEffect, r)
		}
	}
	sort.SliceStable(withEffect, func(a, b int) bool {
		return withEffect[a].Midpoint > withEffect[b].Midpoint
	})
	if len(withEffect) > n {
		withEffect = withEffect[:n]
	}
	return withEffect
}
