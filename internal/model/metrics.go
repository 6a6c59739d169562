package model

import "fmt"

// Confusion counts outcomes for the positive (delayed) class
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Metrics holds held-out evaluation of one classifier
type Metrics struct {
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Confusion Confusion `json:"confusion"`
}

// Evaluate compares predictions with labels. Precision, recall and F1 are
// reported for the delayed class and are 0 when undefined.
func Evaluate(yTrue, yPred []int) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("evaluate: %d labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Metrics{}, fmt.Errorf("evaluate: no rows")
	}

	var c Confusion
	for i := range yTrue {
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			c.TP++
		case yTrue[i] == 0 && yPred[i] == 1:
			c.FP++
		case yTrue[i] == 1:
			c.FN++
		default:
			c.TN++
		}
	}

	m := Metrics{
		Accuracy:  float64(c.TP+c.TN) / float64(len(yTrue)),
		Precision: ratio(c.TP, c.TP+c.FP),
		Recall:    ratio(c.TP, c.TP+c.FN),
		F1:        ratio(2*c.TP, 2*c.TP+c.FP+c.FN),
		Confusion: c,
	}
	return m, nil
}

// F1Score is the positive-class F1 of yPred against yTrue
func F1Score(yTrue, yPred []int) float64 {
	m, err := Evaluate(yTrue, yPred)
	if err != nil {
		return 0
	}
	return m.F1
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
