package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/features"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/observability"
)

// GridPoint is one random forest parameter combination and its CV score
type GridPoint struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MeanF1          float64 `json:"mean_f1"`
}

// Params converts the point into classifier parameters
func (p GridPoint) Params() map[string]float64 {
	return map[string]float64{
		model.ParamNEstimators:     float64(p.NEstimators),
		model.ParamMaxDepth:        float64(p.MaxDepth),
		model.ParamMinSamplesSplit: float64(p.MinSamplesSplit),
	}
}

// GridResult summarizes a search
type GridResult struct {
	Best      GridPoint   `json:"best"`
	Points    []GridPoint `json:"points"`
	Total     int         `json:"total"`
	Evaluated int         `json:"evaluated"`
	TimedOut  bool        `json:"timed_out"`
}

// GridSearch 랜덤 포레스트 하이퍼파라미터 탐색 (stratified k-fold, mean F1)
// train is the training partition before assembly. Each fold fits its own
// customer risk table on the fold's training rows, so validation rows never
// score against their own labels.
// When the budget expires the best point evaluated so far is returned.
// Ties keep the earlier point.
func GridSearch(
	ctx context.Context,
	cfg GridConfig,
	seed int64,
	smoothing float64,
	schema contracts.FeatureSchema,
	train []features.Derived,
	metrics *observability.Metrics,
	log zerolog.Logger,
) (*GridResult, error) {
	points := cfg.Points()
	if len(points) == 0 {
		return nil, fmt.Errorf("grid search: empty grid")
	}

	folds, err := model.StratifiedKFold(features.Labels(train), cfg.Folds, seed)
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}
	data, err := assembleFolds(schema, train, folds, smoothing)
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	searchCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result := &GridResult{Total: len(points), Best: GridPoint{MeanF1: -1}}

	for _, point := range points {
		score, err := crossValidate(searchCtx, point, seed, schema, data)
		if err != nil {
			// the caller's context wins over the search budget
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				result.TimedOut = true
				break
			}
			return nil, fmt.Errorf("grid search: %w", err)
		}

		point.MeanF1 = score
		result.Points = append(result.Points, point)
		result.Evaluated++
		metrics.RecordGridPoint()

		log.Debug().
			Int("n_estimators", point.NEstimators).
			Int("max_depth", point.MaxDepth).
			Int("min_samples_split", point.MinSamplesSplit).
			Float64("mean_f1", score).
			Msg("grid point evaluated")

		if score > result.Best.MeanF1 {
			result.Best = point
		}
	}

	if result.Evaluated == 0 {
		return nil, fmt.Errorf("grid search: budget %s expired before the first point: %w", cfg.Timeout, context.DeadlineExceeded)
	}

	if result.TimedOut {
		log.Warn().
			Int("evaluated", result.Evaluated).
			Int("total", result.Total).
			Msg("grid search budget expired, using best point so far")
	}

	return result, nil
}

// foldData is one fold assembled with its own risk table
type foldData struct {
	xTrain, xTest *contracts.FeatureTable
	yTrain, yTest []int
}

func assembleFolds(schema contracts.FeatureSchema, train []features.Derived, folds []model.Fold, smoothing float64) ([]foldData, error) {
	out := make([]foldData, len(folds))
	for i, fold := range folds {
		fit := features.Select(train, fold.Train)
		risk := features.FitRiskTable(fit, smoothing)

		var f foldData
		f.xTrain, f.yTrain = features.Assemble(fit, risk)
		f.xTest, f.yTest = features.Assemble(features.Select(train, fold.Test), risk)
		if err := f.xTrain.Validate(schema); err != nil {
			return nil, err
		}
		if err := f.xTest.Validate(schema); err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// crossValidate returns the mean F1 of point over folds
func crossValidate(
	ctx context.Context,
	point GridPoint,
	seed int64,
	schema contracts.FeatureSchema,
	folds []foldData,
) (float64, error) {
	total := 0.0
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		clf, err := model.New(model.KindRandomForest, point.Params(), seed)
		if err != nil {
			return 0, err
		}

		pipeline := model.NewPipeline(schema, clf)
		if err := pipeline.Fit(fold.xTrain, fold.yTrain); err != nil {
			return 0, err
		}

		pred, err := pipeline.Predict(fold.xTest)
		if err != nil {
			return 0, err
		}
		total += model.F1Score(fold.yTest, pred)
	}
	return total / float64(len(folds)), nil
}
