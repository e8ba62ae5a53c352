package checker

import (
	"context"
	"sync"

	"github.com/webwatch/webwatch/internal/probe"
)

// BulkCheck probes targets concurrently, at most MaxConcurrent in flight,
// and returns one outcome per distinct target once all have finished. A
// failing target contributes its failure outcome and never suppresses the
// others. Duplicate targets are each probed; the last writer wins.
func (c *Checker) BulkCheck(ctx context.Context, targets []string) map[string]probe.Outcome {
	results := make(map[string]probe.Outcome, len(targets))
	if len(targets) == 0 {
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.maxConcurrent)
	)
	for _, target := range targets {
		target := target
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out := c.Check(ctx, target)
			mu.Lock()
			results[target] = out
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}
