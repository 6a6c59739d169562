package features

import "sort"

// RiskTable maps customer id to historical delay rate.
// Fields are exported so the table travels inside the model artifact.
// ⭐ SSOT: 학습 파티션에서만 계산 (누수 방지)
type RiskTable struct {
	Scores    map[string]float64
	Counts    map[string]int
	Prior     float64 // population delay rate, the fallback for unseen customers
	Smoothing float64 // m in (n*mean + m*prior) / (n + m)
}

// FitRiskTable 고객별 지연율 계산 (베이지안 수축 옵션)
// smoothing 0 keeps the raw per-customer mean.
func FitRiskTable(derived []Derived, smoothing float64) *RiskTable {
	if smoothing < 0 {
		smoothing = 0
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	total := 0.0
	for _, d := range derived {
		sums[d.CustomerID] += float64(d.Delayed)
		counts[d.CustomerID]++
		total += float64(d.Delayed)
	}

	prior := 0.0
	if len(derived) > 0 {
		prior = total / float64(len(derived))
	}

	scores := make(map[string]float64, len(counts))
	for id, n := range counts {
		scores[id] = shrink(sums[id], n, prior, smoothing)
	}

	return &RiskTable{
		Scores:    scores,
		Counts:    counts,
		Prior:     prior,
		Smoothing: smoothing,
	}
}

// shrink pulls a customer's mean toward the prior by weight m/(n+m)
func shrink(sum float64, n int, prior, m float64) float64 {
	return (sum + m*prior) / (float64(n) + m)
}

// Lookup returns the customer's score, or the prior when the customer was not seen
func (r *RiskTable) Lookup(customerID string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	if score, ok := r.Scores[customerID]; ok {
		return score, true
	}
	return r.Prior, false
}

// Len returns the number of known customers
func (r *RiskTable) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Scores)
}

// Customers returns known customer ids in sorted order
func (r *RiskTable) Customers() []string {
	ids := make([]string, 0, len(r.Scores))
	for id := range r.Scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
