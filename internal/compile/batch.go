package compile

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Batch compiles files concurrently, running at most workers compilations at
// once (unbounded when workers <= 0). Results are returned in input order.
// Failed compilations are results; the first error (missing compiler or
// source, cancelled context) cancels the remaining work and is returned.
func (c *Compiler) Batch(ctx context.Context, files []string, workers int) ([]*Result, error) {
	results := make([]*Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, f := range files {
		g.Go(func() error {
			res, err := c.Compile(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Stats aggregates a set of compilation results.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// SuccessRate is the percentage of successful compilations, rounded to
	// two decimals. Zero when Total is zero.
	SuccessRate float64 `json:"success_rate"`

	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
}

// Summarize computes [Stats] over results. Nil entries are ignored.
func Summarize(results []*Result) Stats {
	var s Stats
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Total++
		if r.Success {
			s.Successful++
		}
		s.TotalTime += r.Duration
	}
	s.Failed = s.Total - s.Successful
	if s.Total > 0 {
		s.SuccessRate = math.Round(float64(s.Successful)/float64(s.Total)*10000) / 100
		s.AverageTime = s.TotalTime / time.Duration(s.Total)
	}
	return s
}
