// Package evaluate provides holdout splitting and classifier metrics.
package evaluate

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// StratifiedSplit partitions row indices into train and test sets,
// preserving the class ratio of labels. Each class contributes
// round(testSize*count) rows to the test set, but never all of its rows.
// Both returned slices are sorted.
func StratifiedSplit(labels []int, testSize float64, seed int64) (train, test []int) {
	byClass := make(map[int][]int)
	var classes []int
	for i, l := range labels {
		if _, ok := byClass[l]; !ok {
			classes = append(classes, l)
		}
		byClass[l] = append(byClass[l], i)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		k := int(math.Round(testSize * float64(len(idx))))
		if k >= len(idx) {
			k = len(idx) - 1
		}
		if k < 0 {
			k = 0
		}
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// Accuracy returns the share of rows whose predicted class (score > 0.5)
// matches the label. It is NaN for no rows.
func Accuracy(labels []int, scores []float64) float64 {
	if len(labels) == 0 {
		return math.NaN()
	}
	correct := 0
	for i, l := range labels {
		pred := 0
		if scores[i] > 0.5 {
			pred = 1
		}
		if pred == l {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// ROCAUC returns the area under the ROC curve of scores for labels. It is
// NaN unless both classes are present.
func ROCAUC(labels []int, scores []float64) float64 {
	pos, neg := CountClasses(labels)
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// CountClasses returns the number of positive and negative labels.
func CountClasses(labels []int) (pos, neg int) {
	for _, l := range labels {
		if l == 1 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// Importance is a named feature importance.
type Importance struct {
	Feature    string  `json:"feature" csv:"feature"`
	Importance float64 `json:"importance" csv:"importance"`
}

// Rank pairs names with importances and sorts them in decreasing order,
// breaking ties by name.
func Rank(names []string, values []float64) []Importance {
	out := make([]Importance, len(names))
	for i, n := range names {
		out[i] = Importance{Feature: n, Importance: values[i]}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Importance != out[b].Importance {
			return out[a].Importance > out[b].Importance
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}

// Report summarizes holdout performance of a fitted classifier.
type Report struct {
	TrainRows   int
	TestRows    int
	Positives   int
	Negatives   int
	Accuracy    float64
	ROCAUC      float64
	Importances []Importance
}
