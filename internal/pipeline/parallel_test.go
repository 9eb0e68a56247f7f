package pipeline

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(t *testing.T, n int) <-chan WorkItem {
	t.Helper()
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{
			Seq:    i,
			Name:   fmt.Sprintf("sample%03d", i),
			Genome: canonicalGenome(t, float64(i%3)),
		}
	}
	close(ch)
	return ch
}

func TestParallelPredict_OrderPreservation(t *testing.T) {
	p := NewPredictor(stubModel())

	results := p.ParallelPredict(makeItems(t, 200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("sample%03d", r.Seq), r.Name)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelPredict_SingleWorker(t *testing.T) {
	p := NewPredictor(stubModel())

	results := p.ParallelPredict(makeItems(t, 30), 1)

	want := []float64{0.1, 0.3, 0.9}
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		assert.InDelta(t, want[r.Seq%3], r.Result.RiskScore, 1e-12)
		return nil
	})
	require.NoError(t, err)
}

func TestParallelPredict_EmptyInput(t *testing.T) {
	p := NewPredictor(stubModel())

	ch := make(chan WorkItem)
	close(ch)

	count := 0
	err := OrderedCollect(p.ParallelPredict(ch, 4), func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	p := NewPredictor(stubModel())

	results := p.ParallelPredict(makeItems(t, 100), 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestForEach(t *testing.T) {
	var calls atomic.Int32
	err := forEach(50, 4, func(i int) error {
		calls.Add(1)
		if i == 30 || i == 7 {
			return fmt.Errorf("item %d", i)
		}
		return nil
	})
	assert.EqualError(t, err, "item 7")
	assert.Equal(t, int32(50), calls.Load())

	assert.NoError(t, forEach(0, 0, func(int) error { return nil }))
}
