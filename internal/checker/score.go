package checker

import "math"

// Health score component weights. They sum to 1 so the score stays on the
// 0..100 scale of its inputs.
const (
	uptimeWeight       = 0.4
	responseTimeWeight = 0.3
	successRateWeight  = 0.3
)

// healthScore combines uptime, a latency grade and the success rate into a
// single 0..100 number. The latency grade degrades linearly and hits 0 at a
// 1000ms average; it never goes negative, so a very slow target can still
// earn up to 70 points from availability alone.
func (mm *metricsMap) healthScore(target string) float64 {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m, ok := mm.agg[target]
	if !ok || m.Checks == 0 {
		return 0
	}
	avg := m.TotalResponseTimeMs / float64(m.Checks)
	latencyScore := math.Max(0, 100-avg/1000*100)
	successScore := float64(m.Successful) / float64(m.Checks) * 100
	return uptimeWeight*m.UptimePercentage +
		responseTimeWeight*latencyScore +
		successRateWeight*successScore
}
