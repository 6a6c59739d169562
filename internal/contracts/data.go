package contracts

import "time"

// DataQualitySnapshot summarizes an order load before imputation
// ⭐ SSOT: orders → training 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	LoadedAt  time.Time          `json:"loaded_at"`
	Source    string             `json:"source"`
	TotalRows int                `json:"total_rows"`
	Coverage  map[string]float64 `json:"coverage"` // non-missing fraction per raw column
	Imputed   map[string]int     `json:"imputed"`  // cells filled per raw column
}

// IsValid checks that at least one row was loaded
func (d *DataQualitySnapshot) IsValid() bool {
	return d.TotalRows > 0
}

// CoverageRate returns the average coverage rate across all columns
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}

// TotalImputed returns the number of filled cells across all columns
func (d *DataQualitySnapshot) TotalImputed() int {
	total := 0
	for _, n := range d.Imputed {
		total += n
	}
	return total
}
