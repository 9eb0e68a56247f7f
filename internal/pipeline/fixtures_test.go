package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/M0-Anwar/diseases-detection/internal/boost"
	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/snp"
	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
	"github.com/stretchr/testify/require"
)

const t2d = "type 2 diabetes"

func findTestFile(t *testing.T, name string) string {
	t.Helper()
	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Fatalf("Test file not found: %s", name)
	return ""
}

func loadCleaned(t *testing.T, name string) *table.Frame {
	t.Helper()
	raw, err := table.ReadFile(findTestFile(t, name))
	require.NoError(t, err)
	f, err := clean.New().Clean(raw)
	require.NoError(t, err)
	return f
}

func stage1Model(t *testing.T) (*Model, *table.Frame) {
	t.Helper()
	catalogue := loadCleaned(t, "raw_catalogue.csv")
	m, err := NewTrainer().FitVariantClassifier(catalogue, "Type 2 Diabetes")
	require.NoError(t, err)
	return m, catalogue
}

// cohort builds ten genomes rich in target variants (label 1) and ten
// genomes without them (label 0) from catalogue rows.
func cohort(t *testing.T, catalogue *table.Frame) ([]*table.Frame, []int) {
	t.Helper()
	traits := catalogue.Column(variant.DiseaseTrait)
	var target, other []int
	for i := 0; i < catalogue.Len(); i++ {
		if traits.Str[i] == t2d {
			target = append(target, i)
		} else {
			other = append(other, i)
		}
	}
	require.Len(t, target, 40)

	var genomes []*table.Frame
	var labels []int
	for k := 0; k < 10; k++ {
		var rows []int
		for j := 0; j < 8; j++ {
			rows = append(rows, target[(k*4+j)%len(target)])
		}
		for j := 0; j < 4; j++ {
			rows = append(rows, other[(k*4+j)%len(other)])
		}
		genomes = append(genomes, genomeFrom(catalogue, rows))
		labels = append(labels, 1)
	}
	for k := 0; k < 10; k++ {
		var rows []int
		for j := 0; j < 12; j++ {
			rows = append(rows, other[(40+k*12+j)%len(other)])
		}
		genomes = append(genomes, genomeFrom(catalogue, rows))
		labels = append(labels, 0)
	}
	return genomes, labels
}

func genomeFrom(catalogue *table.Frame, rows []int) *table.Frame {
	g := catalogue.Take(rows)
	g.Drop(variant.DiseaseTrait)
	return g
}

func twoStageModel(t *testing.T) *Model {
	t.Helper()
	m, catalogue := stage1Model(t)
	genomes, labels := cohort(t, catalogue)
	two, err := NewTrainer().FitPersonClassifier(m, genomes, labels)
	require.NoError(t, err)
	return two
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// stubModel returns a Stage1Only model whose variant classifier scores a
// row by its effect midpoint: 2 -> 0.9, 1 -> 0.3, 0 -> 0.1, 0.75 -> 0.5.
func stubModel() *Model {
	tree := boost.Tree{Nodes: []boost.Node{
		{Feature: 0, Threshold: 1.5, Left: 1, Right: 2},
		{Feature: 0, Threshold: 0.5, Left: 3, Right: 4},
		{Feature: -1, Value: logit(0.9)},
		{Feature: -1, Value: logit(0.1)},
		{Feature: 0, Threshold: 0.9, Left: 5, Right: 6},
		{Feature: -1, Value: 0},
		{Feature: -1, Value: logit(0.3)},
	}}
	c := &snp.Classifier{
		Target: t2d,
		Features: []snp.Feature{
			{Name: variant.EffectMidpoint, Kind: table.Numeric, Median: 1},
		},
		Model: &boost.Model{
			NumFeatures: 1,
			Trees:       []boost.Tree{tree},
			Gain:        []float64{1},
			Splits:      []int{3},
		},
	}
	return &Model{TargetCondition: t2d, Variant: c}
}

// canonicalGenome builds a genome with every canonical column, one row per
// midpoint.
func canonicalGenome(t *testing.T, mids ...float64) *table.Frame {
	t.Helper()
	n := len(mids)
	f := table.New(n)
	for _, name := range variant.Canonical {
		switch name {
		case variant.EffectMidpoint:
			require.NoError(t, f.Set(table.NewNumeric(name, append([]float64(nil), mids...))))
		case variant.PValue:
			p := make([]float64, n)
			for i := range p {
				p[i] = 1e-8 * float64(i+1)
			}
			require.NoError(t, f.Set(table.NewNumeric(name, p)))
		case variant.Region, variant.ChrID, variant.MappedGene, variant.SNPs,
			variant.Context, variant.Intergenic, variant.CI95, variant.PValueCategory:
			s := make([]string, n)
			for i := range s {
				s[i] = "x"
			}
			require.NoError(t, f.Set(table.NewText(name, s, nil)))
		default:
			require.NoError(t, f.Set(table.NewNumeric(name, make([]float64, n))))
		}
	}
	return f
}
