package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/preprocess"
)

// Pipeline chains a preprocessing transform and a classifier.
// Fit fits both; prediction applies the fitted transform then the classifier.
type Pipeline struct {
	Transform  *preprocess.Transform
	Classifier Classifier
}

// NewPipeline wraps clf with a fresh transform for schema
func NewPipeline(schema contracts.FeatureSchema, clf Classifier) *Pipeline {
	return &Pipeline{
		Transform:  preprocess.New(schema),
		Classifier: clf,
	}
}

// Name returns the classifier family
func (p *Pipeline) Name() string {
	return p.Classifier.Name()
}

// Fit fits the transform on table, then the classifier on the transformed rows
func (p *Pipeline) Fit(table *contracts.FeatureTable, y []int) error {
	if err := p.Transform.Fit(table); err != nil {
		return err
	}
	x, err := p.Transform.Transform(table)
	if err != nil {
		return err
	}
	if err := p.Classifier.Fit(x, y); err != nil {
		return fmt.Errorf("fit %s: %w", p.Classifier.Name(), err)
	}
	return nil
}

// PredictProbability returns P(delayed) per row
func (p *Pipeline) PredictProbability(table *contracts.FeatureTable) ([]float64, error) {
	x, err := p.Transform.Transform(table)
	if err != nil {
		return nil, err
	}

	rows, _ := x.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = p.Classifier.Score(x.RawRowView(i))
	}
	return out, nil
}

// Predict returns the 0/1 label per row
func (p *Pipeline) Predict(table *contracts.FeatureTable) ([]int, error) {
	x, err := p.Transform.Transform(table)
	if err != nil {
		return nil, err
	}
	return classifyRows(p.Classifier, x), nil
}

func classifyRows(clf Classifier, x *mat.Dense) []int {
	rows, _ := x.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = clf.Classify(x.RawRowView(i))
	}
	return out
}
