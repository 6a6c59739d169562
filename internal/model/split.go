package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit shuffles each class with seed and holds out
// round(testSize * classCount) rows per class. Both index lists are sorted.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, rows := range byClass(y) {
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })

		n := int(math.Round(testSize * float64(len(rows))))
		test = append(test, rows[:n]...)
		train = append(train, rows[n:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, fmt.Errorf("split of %d rows with test size %v leaves an empty partition", len(y), testSize)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Fold is one cross-validation split, as positions into the label slice
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold deals each shuffled class round-robin into k folds
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}
	if k > len(y) {
		return nil, fmt.Errorf("k=%d exceeds %d rows", k, len(y))
	}

	assign := make([]int, len(y))
	rng := rand.New(rand.NewSource(seed))
	next := 0
	for _, rows := range byClass(y) {
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
		for _, r := range rows {
			assign[r] = next % k
			next++
		}
	}

	folds := make([]Fold, k)
	for i, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}

// byClass groups row indices by label, classes in ascending order
func byClass(y []int) [][]int {
	groups := make(map[int][]int)
	for i, v := range y {
		groups[v] = append(groups[v], i)
	}

	labels := make([]int, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	out := make([][]int, len(labels))
	for i, label := range labels {
		out[i] = groups[label]
	}
	return out
}
