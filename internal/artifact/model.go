package artifact

import (
	"time"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/features"
)

// Model is a loaded artifact. It is immutable and safe for concurrent use.
type Model struct {
	bundle   *Bundle
	path     string
	loadedAt time.Time
}

// Predict returns the 0/1 label per row
func (m *Model) Predict(table *contracts.FeatureTable) ([]int, error) {
	return m.bundle.Pipeline.Predict(table)
}

// PredictProbability returns P(delayed) per row
func (m *Model) PredictProbability(table *contracts.FeatureTable) ([]float64, error) {
	return m.bundle.Pipeline.PredictProbability(table)
}

// RiskScore looks up a customer in the training risk table.
// Unseen customers get the population delay rate and false.
func (m *Model) RiskScore(customerID string) (float64, bool) {
	return m.bundle.Risk.Lookup(customerID)
}

// RiskTable returns the training risk table for batch scoring
func (m *Model) RiskTable() *features.RiskTable {
	return m.bundle.Risk
}

// RiskPrior returns the population delay rate of the training partition
func (m *Model) RiskPrior() float64 {
	return m.bundle.Risk.Prior
}

// Schema returns the input feature layout
func (m *Model) Schema() contracts.FeatureSchema {
	return m.bundle.Schema
}

// RunID identifies the training run that produced the artifact
func (m *Model) RunID() string {
	return m.bundle.RunID
}

// Info describes the artifact for the API and the CLI
func (m *Model) Info() contracts.ModelInfo {
	return contracts.ModelInfo{
		RunID:      m.bundle.RunID,
		Schema:     SchemaTag,
		Candidate:  m.bundle.Candidate,
		CreatedAt:  m.bundle.CreatedAt,
		Metrics:    m.bundle.Metrics,
		Candidates: m.bundle.Candidates,
		Features:   m.bundle.Features,
		TrainRows:  m.bundle.TrainRows,
		TestRows:   m.bundle.TestRows,
		RiskPrior:  m.bundle.Risk.Prior,
		Path:       m.path,
		LoadedAt:   m.loadedAt,
	}
}
