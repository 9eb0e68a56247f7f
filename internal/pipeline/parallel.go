package pipeline

import (
	"runtime"
	"sync"

	"github.com/M0-Anwar/diseases-detection/internal/table"
)

// WorkItem holds one cleaned genome ready for prediction.
type WorkItem struct {
	Seq    int
	Name   string
	Genome *table.Frame
}

// WorkResult holds the prediction for a single genome.
type WorkResult struct {
	Seq    int
	Name   string
	Result *Result
	Err    error
}

// ParallelPredict predicts work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (p *Predictor) ParallelPredict(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := p.Predict(item.Genome)
				results <- WorkResult{
					Seq:    item.Seq,
					Name:   item.Name,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// PredictAll predicts every genome and returns results in input order.
// Per-genome failures are reported in WorkResult.Err.
func (p *Predictor) PredictAll(names []string, genomes []*table.Frame, workers int) []WorkResult {
	items := make(chan WorkItem, len(genomes))
	for i, g := range genomes {
		items <- WorkItem{Seq: i, Name: names[i], Genome: g}
	}
	close(items)

	out := make([]WorkResult, 0, len(genomes))
	// The collector never returns an error, so neither does OrderedCollect.
	_ = OrderedCollect(p.ParallelPredict(items, workers), func(r WorkResult) error {
		out = append(out, r)
		return nil
	})
	return out
}

// forEach runs fn for indices 0..n-1 on a pool of workers and returns the
// error of the lowest failing index.
func forEach(n, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	errs := make([]error, n)
	next := make(chan int, n)
	for i := range n {
		next <- i
	}
	close(next)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range next {
				errs[i] = fn(i)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
