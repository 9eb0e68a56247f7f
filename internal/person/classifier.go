package person

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/boost"
	"github.com/M0-Anwar/diseases-detection/internal/evaluate"
)

// InsufficientClassVarianceError is returned when person labels do not
// contain both classes.
type InsufficientClassVarianceError struct {
	Classes []int
}

func (e *InsufficientClassVarianceError) Error() string {
	return fmt.Sprintf("insufficient class variance: need labels 0 and 1, got %v", e.Classes)
}

// Classifier is a fitted person classifier. It is not modified after Fit.
type Classifier struct {
	Columns []string
	Model   *boost.Model
	Report  evaluate.Report
}

// Options controls fitting.
type Options struct {
	Params   boost.Params
	TestSize float64
	Seed     int64
	Logger   *zap.Logger
}

// DefaultOptions returns 100 trees of depth 4 with learning rate 0.05 and
// 80% row and column subsampling.
func DefaultOptions() Options {
	p := boost.DefaultParams()
	p.LearningRate = 0.05
	p.Subsample = 0.8
	p.ColsampleByTree = 0.8
	return Options{
		Params:   p,
		TestSize: 0.2,
		Seed:     42,
	}
}

// Fit trains a classifier on one feature vector and one externally supplied
// 0/1 label per person. Both classes must be present.
func Fit(vectors []Features, labels []int, opts Options) (*Classifier, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d labels for %d people", len(labels), len(vectors))
	}
	distinct := make(map[int]bool)
	for i, l := range labels {
		if l != 0 && l != 1 {
			return nil, fmt.Errorf("label %d for person %d is not 0 or 1", l, i)
		}
		distinct[l] = true
	}
	if len(distinct) < 2 {
		classes := make([]int, 0, len(distinct))
		for l := range distinct {
			classes = append(classes, l)
		}
		sort.Ints(classes)
		return nil, &InsufficientClassVarianceError{Classes: classes}
	}

	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		x[i] = v.Values()
	}

	train, test := evaluate.StratifiedSplit(labels, opts.TestSize, opts.Seed)
	xTrain, yTrain := rows(x, labels, train)
	xTest, yTest := rows(x, labels, test)

	params := opts.Params
	pos, neg := evaluate.CountClasses(yTrain)
	params.ScalePosWeight = 1
	if pos > 0 && neg > 0 {
		params.ScalePosWeight = float64(neg) / float64(pos)
	}
	logger.Info("training person classifier",
		zap.Int("people", len(vectors)),
		zap.Int("train_rows", len(train)),
		zap.Int("test_rows", len(test)),
		zap.Float64("scale_pos_weight", params.ScalePosWeight))

	model, err := boost.Train(xTrain, yTrain, params)
	if err != nil {
		return nil, fmt.Errorf("fit person classifier: %w", err)
	}

	allPos, allNeg := evaluate.CountClasses(labels)
	scores := model.PredictProbaAll(xTest)
	c := &Classifier{
		Columns: append([]string(nil), FeatureNames...),
		Model:   model,
		Report: evaluate.Report{
			TrainRows:   len(train),
			TestRows:    len(test),
			Positives:   allPos,
			Negatives:   allNeg,
			Accuracy:    evaluate.Accuracy(yTest, scores),
			ROCAUC:      evaluate.ROCAUC(yTest, scores),
			Importances: evaluate.Rank(FeatureNames, model.Importances()),
		},
	}
	if math.IsNaN(c.Report.ROCAUC) {
		logger.Warn("person holdout set lacks both classes, ROC-AUC undefined")
	}
	logger.Info("person classifier results",
		zap.Float64("accuracy", c.Report.Accuracy),
		zap.Float64("roc_auc", c.Report.ROCAUC))
	return c, nil
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

// Score returns the disease probability of a feature map. The map is
// reindexed to the fit-time columns; absent columns count as zero and
// unknown keys are ignored.
func (c *Classifier) Score(values map[string]float64) float64 {
	row := make([]float64, len(c.Columns))
	for i, name := range c.Columns {
		row[i] = values[name]
	}
	return c.Model.PredictProba(row)
}

// ScoreFeatures scores a feature vector.
func (c *Classifier) ScoreFeatures(f Features) float64 {
	return c.Score(f.Map())
}
