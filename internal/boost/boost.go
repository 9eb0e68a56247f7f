// Package boost implements gradient-boosted regression trees with a logistic
// loss for binary classification.
//
// Trees are grown level-wise with exact greedy splits over presorted
// features. A row goes left when its value is below the split threshold or
// missing (NaN). Leaf weights follow the second-order update
// -G/(H+lambda), scaled by the learning rate.
package boost

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Params controls training.
type Params struct {
	NEstimators     int
	MaxDepth        int
	LearningRate    float64
	Subsample       float64 // Row fraction sampled per tree.
	ColsampleByTree float64 // Feature fraction sampled per tree.
	Lambda          float64 // L2 regularization on leaf weights.
	MinChildWeight  float64 // Minimum hessian sum per child.
	ScalePosWeight  float64 // Weight of positive rows.
	Seed            int64
}

// DefaultParams returns 100 trees of depth 4 with learning rate 0.1.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		MaxDepth:        4,
		LearningRate:    0.1,
		Subsample:       1,
		ColsampleByTree: 1,
		Lambda:          1,
		MinChildWeight:  1,
		ScalePosWeight:  1,
		Seed:            42,
	}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %g", p.LearningRate)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %g", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %g", p.ColsampleByTree)
	case p.Lambda < 0:
		return fmt.Errorf("lambda must not be negative, got %g", p.Lambda)
	case p.ScalePosWeight <= 0:
		return fmt.Errorf("scale_pos_weight must be positive, got %g", p.ScalePosWeight)
	}
	return nil
}

// Node is a tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a flat binary regression tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value reached by row.
func (t *Tree) Predict(row []float64) float64 {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		v := row[n.Feature]
		if math.IsNaN(v) || v < n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// Model is a trained ensemble. All fields are exported for gob encoding.
type Model struct {
	NumFeatures int
	BaseMargin  float64
	Trees       []Tree
	Gain        []float64 // Total split gain per feature.
	Splits      []int     // Number of splits per feature.
}

// ErrNoRows is returned when training on an empty matrix.
var ErrNoRows = errors.New("no training rows")

// Margin returns the raw log-odds score of a row.
func (m *Model) Margin(row []float64) float64 {
	s := m.BaseMargin
	for i := range m.Trees {
		s += m.Trees[i].Predict(row)
	}
	return s
}

// PredictProba returns P(y=1) for a row.
func (m *Model) PredictProba(row []float64) float64 {
	return sigmoid(m.Margin(row))
}

// PredictProbaAll scores every row, preserving order.
func (m *Model) PredictProbaAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.PredictProba(row)
	}
	return out
}

// Importances returns the mean split gain of each feature, normalized to
// sum to one. Features never used for a split score zero.
func (m *Model) Importances() []float64 {
	out := make([]float64, m.NumFeatures)
	total := 0.0
	for f := range out {
		if m.Splits[f] > 0 {
			out[f] = m.Gain[f] / float64(m.Splits[f])
			total += out[f]
		}
	}
	if total > 0 {
		for f := range out {
			out[f] /= total
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Train fits a binary classifier on x (rows of equal width) and labels y
// (0 or 1).
func Train(x [][]float64, y []int, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(x)
	if n == 0 {
		return nil, ErrNoRows
	}
	if len(y) != n {
		return nil, fmt.Errorf("got %d labels for %d rows", len(y), n)
	}
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), d)
		}
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("label %d at row %d is not 0 or 1", v, i)
		}
	}

	b := newBuilder(x, y, p)
	m := &Model{
		NumFeatures: d,
		Gain:        make([]float64, d),
		Splits:      make([]int, d),
	}
	margins := make([]float64, n)
	for t := 0; t < p.NEstimators; t++ {
		b.gradients(margins)
		tree := b.grow(m)
		for i, row := range x {
			margins[i] += tree.Predict(row)
		}
		m.Trees = append(m.Trees, tree)
	}
	return m, nil
}

type builder struct {
	x       [][]float64
	y       []int
	weight  []float64
	params  Params
	rng     *rand.Rand
	sorted  [][]int // Per feature, rows with a value in ascending order.
	missing [][]int // Per feature, rows with NaN.
	grad    []float64
	hess    []float64
	pos     []int // Open node of each row, -1 when out of play.
}

func newBuilder(x [][]float64, y []int, p Params) *builder {
	n, d := len(x), len(x[0])
	b := &builder{
		x:       x,
		y:       y,
		weight:  make([]float64, n),
		params:  p,
		rng:     rand.New(rand.NewSource(p.Seed)),
		sorted:  make([][]int, d),
		missing: make([][]int, d),
		grad:    make([]float64, n),
		hess:    make([]float64, n),
		pos:     make([]int, n),
	}
	for i, v := range y {
		b.weight[i] = 1
		if v == 1 {
			b.weight[i] = p.ScalePosWeight
		}
	}
	for f := 0; f < d; f++ {
		var present []int
		for i := 0; i < n; i++ {
			if math.IsNaN(x[i][f]) {
				b.missing[f] = append(b.missing[f], i)
			} else {
				present = append(present, i)
			}
		}
		sort.SliceStable(present, func(a, c int) bool {
			return x[present[a]][f] < x[present[c]][f]
		})
		b.sorted[f] = present
	}
	return b
}

func (b *builder) gradients(margins []float64) {
	for i, m := range margins {
		pr := sigmoid(m)
		w := b.weight[i]
		b.grad[i] = w * (pr - float64(b.y[i]))
		b.hess[i] = w * pr * (1 - pr)
	}
}

// sampleRows marks the rows used by the next tree with node 0.
func (b *builder) sampleRows() {
	if b.params.Subsample >= 1 {
		for i := range b.pos {
			b.pos[i] = 0
		}
		return
	}
	picked := false
	for i := range b.pos {
		if b.rng.Float64() < b.params.Subsample {
			b.pos[i] = 0
			picked = true
		} else {
			b.pos[i] = -1
		}
	}
	if !picked {
		for i := range b.pos {
			b.pos[i] = 0
		}
	}
}

func (b *builder) sampleFeatures() []int {
	d := len(b.sorted)
	k := d
	if b.params.ColsampleByTree < 1 {
		k = int(math.Floor(b.params.ColsampleByTree * float64(d)))
		if k < 1 {
			k = 1
		}
	}
	if k >= d {
		all := make([]int, d)
		for f := range all {
			all[f] = f
		}
		return all
	}
	feats := b.rng.Perm(d)[:k]
	sort.Ints(feats)
	return feats
}

type split struct {
	gain      float64
	feature   int
	threshold float64
}

func (b *builder) grow(m *Model) Tree {
	b.sampleRows()
	features := b.sampleFeatures()
	lambda := b.params.Lambda
	minChild := b.params.MinChildWeight

	tree := Tree{Nodes: []Node{{Feature: -1}}}
	open := []int{0}
	for depth := 0; len(open) > 0; depth++ {
		slot := make([]int, len(tree.Nodes))
		for i := range slot {
			slot[i] = -1
		}
		for s, id := range open {
			slot[id] = s
		}
		sumG := make([]float64, len(open))
		sumH := make([]float64, len(open))
		for i, id := range b.pos {
			if id < 0 || slot[id] < 0 {
				continue
			}
			sumG[slot[id]] += b.grad[i]
			sumH[slot[id]] += b.hess[i]
		}

		best := make([]split, len(open))
		for s := range best {
			best[s].feature = -1
		}
		if depth < b.params.MaxDepth {
			gl := make([]float64, len(open))
			hl := make([]float64, len(open))
			last := make([]float64, len(open))
			seen := make([]bool, len(open))
			for _, f := range features {
				for s := range open {
					gl[s], hl[s], seen[s] = 0, 0, false
				}
				for _, i := range b.missing[f] {
					if id := b.pos[i]; id >= 0 && slot[id] >= 0 {
						gl[slot[id]] += b.grad[i]
						hl[slot[id]] += b.hess[i]
					}
				}
				for _, i := range b.sorted[f] {
					id := b.pos[i]
					if id < 0 || slot[id] < 0 {
						continue
					}
					s := slot[id]
					v := b.x[i][f]
					if seen[s] && v != last[s] {
						gr, hr := sumG[s]-gl[s], sumH[s]-hl[s]
						if hl[s] >= minChild && hr >= minChild {
							gain := 0.5 * (gl[s]*gl[s]/(hl[s]+lambda) +
								gr*gr/(hr+lambda) -
								sumG[s]*sumG[s]/(sumH[s]+lambda))
							if gain > best[s].gain {
								thr := last[s] + (v-last[s])/2
								if thr <= last[s] {
									thr = v
								}
								best[s] = split{gain: gain, feature: f, threshold: thr}
							}
						}
					}
					gl[s] += b.grad[i]
					hl[s] += b.hess[i]
					last[s] = v
					seen[s] = true
				}
			}
		}

		var next []int
		for s, id := range open {
			if best[s].feature < 0 {
				tree.Nodes[id].Feature = -1
				tree.Nodes[id].Value = -sumG[s] / (sumH[s] + lambda) * b.params.LearningRate
				continue
			}
			left := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes, Node{Feature: -1}, Node{Feature: -1})
			tree.Nodes[id] = Node{
				Feature:   best[s].feature,
				Threshold: best[s].threshold,
				Left:      left,
				Right:     left + 1,
			}
			m.Gain[best[s].feature] += best[s].gain
			m.Splits[best[s].feature]++
			next = append(next, left, left+1)
		}

		for i, id := range b.pos {
			if id < 0 {
				continue
			}
			node := tree.Nodes[id]
			if node.Feature < 0 {
				continue
			}
			v := b.x[i][node.Feature]
			if math.IsNaN(v) || v < node.Threshold {
				b.pos[i] = node.Left
			} else {
				b.pos[i] = node.Right
			}
		}
		open = next
	}
	return tree
}
