// Package snp implements the variant-level classifier that scores how
// strongly each variant is associated with one target condition.
package snp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/boost"
	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/evaluate"
	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
)

// Feature describes one input column of the classifier as seen at fit time.
type Feature struct {
	Name string
	Kind table.Kind
	// Categories holds the sorted distinct values of a text feature. A value's
	// code is its index; missing or unseen values are coded -1.
	Categories []string
	// Median of the numeric column over the training rows.
	Median float64
}

// Code returns the integer code of a text value.
func (f *Feature) Code(s string) (int, bool) {
	i := sort.SearchStrings(f.Categories, s)
	if i < len(f.Categories) && f.Categories[i] == s {
		return i, true
	}
	return -1, false
}

// Classifier is a fitted variant classifier. It is not modified after Fit.
type Classifier struct {
	Target   string
	Features []Feature
	Model    *boost.Model
	Report   evaluate.Report
}

// Options controls fitting.
type Options struct {
	Params   boost.Params
	TestSize float64
	Seed     int64
	Logger   *zap.Logger
}

// DefaultOptions returns 100 trees of depth 4 with learning rate 0.1 and an
// 80/20 holdout split.
func DefaultOptions() Options {
	return Options{
		Params:   boost.DefaultParams(),
		TestSize: 0.2,
		Seed:     42,
	}
}

// Fit trains a classifier that separates rows whose DISEASE_TRAIT equals
// target from all other rows. Every other column of the frame becomes a
// feature, in frame order.
func Fit(f *table.Frame, target string, opts Options) (*Classifier, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := variant.Require(f, variant.DiseaseTrait); err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("fit variant classifier: %w", boost.ErrNoRows)
	}

	target = clean.NormalizeTrait(target)
	traits := f.Column(variant.DiseaseTrait)
	labels := make([]int, f.Len())
	for i := range labels {
		if clean.NormalizeTrait(traits.String(i)) == target {
			labels[i] = 1
		}
	}
	pos, neg := evaluate.CountClasses(labels)
	logger.Info("variant class distribution",
		zap.String("target", target),
		zap.Int("positive", pos),
		zap.Int("negative", neg))
	if pos == 0 || neg == 0 {
		logger.Warn("variant labels contain a single class",
			zap.String("target", target),
			zap.Int("positive", pos),
			zap.Int("negative", neg))
	}

	c := &Classifier{Target: target}
	var cols []*table.Column
	for _, col := range f.Columns() {
		if col.Name == variant.DiseaseTrait {
			continue
		}
		feat := Feature{Name: col.Name, Kind: col.Kind, Median: math.NaN()}
		if col.Kind == table.Text {
			feat.Categories = categories(col)
		} else {
			feat.Median = col.Median()
		}
		c.Features = append(c.Features, feat)
		cols = append(cols, col)
	}

	x := make([][]float64, f.Len())
	for i := range x {
		x[i] = make([]float64, len(cols))
	}
	for j, col := range cols {
		feat := &c.Features[j]
		for i := range x {
			x[i][j] = feat.encode(col, i)
			if math.IsNaN(x[i][j]) && !math.IsNaN(feat.Median) {
				x[i][j] = feat.Median
			}
		}
	}

	train, test := evaluate.StratifiedSplit(labels, opts.TestSize, opts.Seed)
	xTrain, yTrain := rows(x, labels, train)
	xTest, yTest := rows(x, labels, test)

	params := opts.Params
	trainPos, trainNeg := evaluate.CountClasses(yTrain)
	params.ScalePosWeight = 1
	if trainPos > 0 {
		params.ScalePosWeight = float64(trainNeg) / float64(trainPos)
	}
	if params.ScalePosWeight == 0 {
		params.ScalePosWeight = 1
	}
	logger.Info("training variant classifier",
		zap.Int("train_rows", len(train)),
		zap.Int("test_rows", len(test)),
		zap.Float64("scale_pos_weight", params.ScalePosWeight))

	model, err := boost.Train(xTrain, yTrain, params)
	if err != nil {
		return nil, fmt.Errorf("fit variant classifier: %w", err)
	}
	c.Model = model

	scores := model.PredictProbaAll(xTest)
	c.Report = evaluate.Report{
		TrainRows:   len(train),
		TestRows:    len(test),
		Positives:   pos,
		Negatives:   neg,
		Accuracy:    evaluate.Accuracy(yTest, scores),
		ROCAUC:      evaluate.ROCAUC(yTest, scores),
		Importances: evaluate.Rank(c.FeatureNames(), model.Importances()),
	}
	if math.IsNaN(c.Report.ROCAUC) {
		logger.Warn("holdout set lacks both classes, ROC-AUC undefined")
	}
	logger.Info("variant classifier results",
		zap.Float64("accuracy", c.Report.Accuracy),
		zap.Float64("roc_auc", c.Report.ROCAUC))
	for _, imp := range top(c.Report.Importances, 5) {
		logger.Debug("variant feature importance",
			zap.String("feature", imp.Feature),
			zap.Float64("importance", imp.Importance))
	}
	return c, nil
}

func categories(col *table.Column) []string {
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		s := col.String(i)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// encode returns the numeric value of row i, NaN when missing. Text values
// map to their category code; unseen values map to -1.
func (f *Feature) encode(col *table.Column, i int) float64 {
	if f.Kind == table.Numeric {
		return col.Num[i]
	}
	if col.IsNull(i) {
		return -1
	}
	code, _ := f.Code(col.String(i))
	return float64(code)
}

func rows(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for j, i := range idx {
		xs[j] = x[i]
		ys[j] = y[i]
	}
	return xs, ys
}

func top(imps []evaluate.Importance, n int) []evaluate.Importance {
	if len(imps) < n {
		return imps
	}
	return imps[:n]
}

// FeatureNames returns the feature columns in model order.
func (c *Classifier) FeatureNames() []string {
	names := make([]string, len(c.Features))
	for i, f := range c.Features {
		names[i] = f.Name
	}
	return names
}

// Imputation selects the medians used to fill missing numeric values when
// scoring a genome.
type Imputation int

const (
	// QueryMedians fills gaps with medians of the scored genome itself.
	QueryMedians Imputation = iota
	// TrainingMedians fills gaps with medians recorded at fit time.
	TrainingMedians
)

func (m Imputation) String() string {
	if m == TrainingMedians {
		return "training"
	}
	return "query"
}

// ParseImputation parses "query" or "training".
func ParseImputation(s string) (Imputation, error) {
	switch s {
	case "query", "":
		return QueryMedians, nil
	case "training":
		return TrainingMedians, nil
	}
	return 0, fmt.Errorf("unknown imputation mode %q (want query or training)", s)
}

// UnrecognizedFeatureWarning reports input the trained schema does not know:
// either a whole column, or values of a text column never seen in training.
// The input is ignored and scoring proceeds.
type UnrecognizedFeatureWarning struct {
	Column   string
	Category string // First unseen value, empty for an unknown column.
	Count    int    // Number of rows with unseen values.
}

func (w *UnrecognizedFeatureWarning) Error() string {
	if w.Category == "" {
		return fmt.Sprintf("unrecognized feature: column %s is not in the trained schema", w.Column)
	}
	return fmt.Sprintf("unrecognized feature: %d unseen values in column %s (first %q)", w.Count, w.Column, w.Category)
}

// ErrMalformedInput is wrapped by errors for numeric features holding text.
var ErrMalformedInput = errors.New("malformed numeric input")

// Encode builds the model matrix for a genome, reindexed to the fit-time
// feature order. Columns absent from the genome fail with a
// *variant.SchemaError; extra columns and unseen categories are reported as
// warnings.
func (c *Classifier) Encode(genome *table.Frame, imp Imputation) ([][]float64, []*UnrecognizedFeatureWarning, error) {
	names := c.FeatureNames()
	if err := variant.Require(genome, names...); err != nil {
		return nil, nil, err
	}

	var warnings []*UnrecognizedFeatureWarning
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, n := range genome.Names() {
		if !known[n] && n != variant.DiseaseTrait {
			warnings = append(warnings, &UnrecognizedFeatureWarning{Column: n})
		}
	}

	n := genome.Len()
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, len(c.Features))
	}
	for j := range c.Features {
		feat := &c.Features[j]
		col, err := conform(genome.Column(feat.Name), feat.Kind)
		if err != nil {
			return nil, warnings, err
		}

		var unseen *UnrecognizedFeatureWarning
		values := make([]float64, n)
		for i := 0; i < n; i++ {
			values[i] = feat.encode(col, i)
			if feat.Kind == table.Text && values[i] < 0 && !col.IsNull(i) {
				if unseen == nil {
					unseen = &UnrecognizedFeatureWarning{Column: feat.Name, Category: col.String(i)}
				}
				unseen.Count++
			}
		}
		if unseen != nil {
			warnings = append(warnings, unseen)
		}

		if feat.Kind == table.Numeric {
			fill := feat.Median
			if imp == QueryMedians {
				fill = table.NewNumeric(feat.Name, values).Median()
			}
			if !math.IsNaN(fill) {
				for i, v := range values {
					if math.IsNaN(v) {
						values[i] = fill
					}
				}
			}
		}
		for i, v := range values {
			x[i][j] = v
		}
	}
	return x, warnings, nil
}

// conform returns col with the given kind, converting a copy when needed.
// Numeric features fail on text that does not parse.
func conform(col *table.Column, kind table.Kind) (*table.Column, error) {
	if col.Kind == kind {
		return col, nil
	}
	out := col.Clone()
	if kind == table.Text {
		out.AsText()
		return out, nil
	}
	for i, s := range col.Str {
		if col.Null[i] {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("column %s row %d value %q: %w", col.Name, i+1, s, ErrMalformedInput)
		}
	}
	out.AsNumeric()
	return out, nil
}

// Score returns P(associated with the target) for every genome row, in row
// order.
func (c *Classifier) Score(genome *table.Frame, imp Imputation) ([]float64, []*UnrecognizedFeatureWarning, error) {
	x, warnings, err := c.Encode(genome, imp)
	if err != nil {
		return nil, warnings, err
	}
	return c.Model.PredictProbaAll(x), warnings, nil
}
