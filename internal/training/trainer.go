package training

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/features"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/observability"
)

// Candidate is one fitted pipeline and its held-out evaluation
type Candidate struct {
	Name     string
	Params   map[string]float64
	Pipeline *model.Pipeline
	Metrics  model.Metrics
	Duration time.Duration
}

// Summary converts the candidate to its wire form
func (c Candidate) Summary() contracts.CandidateMetrics {
	return contracts.CandidateMetrics{
		Name:      c.Name,
		Accuracy:  c.Metrics.Accuracy,
		Precision: c.Metrics.Precision,
		Recall:    c.Metrics.Recall,
		F1:        c.Metrics.F1,
		Params:    c.Params,
	}
}

// Result is everything a training run produced
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Schema     contracts.FeatureSchema
	Candidates []Candidate
	Selected   int // index into Candidates
	RiskTable  *features.RiskTable
	Grid       *GridResult
	TrainRows  int
	TestRows   int
}

// Best returns the selected candidate
func (r *Result) Best() Candidate {
	return r.Candidates[r.Selected]
}

// Summaries returns every candidate's wire form, in training order
func (r *Result) Summaries() []contracts.CandidateMetrics {
	out := make([]contracts.CandidateMetrics, len(r.Candidates))
	for i, c := range r.Candidates {
		out[i] = c.Summary()
	}
	return out
}

// Trainer runs the training pipeline
// ⭐ SSOT: derive → split → risk(train only) → assemble → fit → evaluate → select
type Trainer struct {
	cfg     Config
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewTrainer 새 Trainer 생성
func NewTrainer(cfg Config, metrics *observability.Metrics, log zerolog.Logger) *Trainer {
	return &Trainer{
		cfg:     cfg,
		metrics: metrics,
		log:     log.With().Str("component", "training.trainer").Logger(),
	}
}

// Run trains every configured candidate on orders and selects the best.
// Data problems are returned as *contracts.DataError; nothing is persisted here.
func (t *Trainer) Run(ctx context.Context, orders []contracts.Order) (*Result, error) {
	started := time.Now()

	result, err := t.run(ctx, orders)
	if err != nil {
		t.metrics.RecordTraining("failure", time.Since(started), nil)
		return nil, err
	}

	result.StartedAt = started
	result.FinishedAt = time.Now()

	f1 := make(map[string]float64, len(result.Candidates))
	for _, c := range result.Candidates {
		f1[c.Name] = c.Metrics.F1
	}
	t.metrics.RecordTraining("success", result.FinishedAt.Sub(started), f1)

	best := result.Best()
	t.log.Info().
		Str("run_id", result.RunID).
		Str("selected", best.Name).
		Float64("f1", best.Metrics.F1).
		Float64("accuracy", best.Metrics.Accuracy).
		Dur("duration", result.FinishedAt.Sub(started)).
		Msg("training run finished")

	return result, nil
}

func (t *Trainer) run(ctx context.Context, orders []contracts.Order) (*Result, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. 파생 필드 + 라벨
	derived, err := features.Derive(orders)
	if err != nil {
		return nil, err
	}
	y := features.Labels(derived)
	if classes := features.Classes(y); len(classes) < 2 {
		return nil, &contracts.DataError{Op: "train", Column: "delivery_delayed", Err: contracts.ErrSingleClass}
	}

	// 2. stratified split
	trainIdx, testIdx, err := model.StratifiedSplit(y, t.cfg.TestSize, t.cfg.Seed)
	if err != nil {
		return nil, &contracts.DataError{Op: "train", Err: err}
	}
	train := features.Select(derived, trainIdx)
	test := features.Select(derived, testIdx)

	// 3. 리스크 테이블은 학습 파티션에서만
	risk := features.FitRiskTable(train, t.cfg.RiskSmoothing)

	// 4. assemble + validate
	schema := contracts.DefaultFeatureSchema()
	xTrain, yTrain := features.Assemble(train, risk)
	xTest, yTest := features.Assemble(test, risk)
	if err := xTrain.Validate(schema); err != nil {
		return nil, &contracts.DataError{Op: "train", Err: err}
	}
	if err := xTest.Validate(schema); err != nil {
		return nil, &contracts.DataError{Op: "train", Err: err}
	}
	if classes := features.Classes(yTrain); len(classes) < 2 {
		return nil, &contracts.DataError{Op: "train", Column: "delivery_delayed", Err: fmt.Errorf("training partition: %w", contracts.ErrSingleClass)}
	}

	t.log.Info().
		Int("rows", len(derived)).
		Int("train_rows", len(trainIdx)).
		Int("test_rows", len(testIdx)).
		Int("customers", risk.Len()).
		Float64("risk_prior", risk.Prior).
		Msg("training data prepared")

	result := &Result{
		RunID:     uuid.NewString(),
		Schema:    schema,
		RiskTable: risk,
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
	}

	// 5-6. 후보 학습 및 평가
	for _, cand := range t.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clf, err := model.New(cand.Name, cand.Params, t.cfg.Seed)
		if err != nil {
			return nil, err
		}
		c, err := t.fitCandidate(cand.Name, clf, schema, xTrain, yTrain, xTest, yTest)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, c)
	}

	// 7. grid search (optional)
	if t.cfg.GridSearch.Enabled {
		grid, err := GridSearch(ctx, t.cfg.GridSearch, t.cfg.Seed, t.cfg.RiskSmoothing, schema, train, t.metrics, t.log)
		if err != nil {
			return nil, err
		}
		result.Grid = grid

		clf, err := model.New(model.KindRandomForest, grid.Best.Params(), t.cfg.Seed)
		if err != nil {
			return nil, err
		}
		c, err := t.fitCandidate(TunedCandidate, clf, schema, xTrain, yTrain, xTest, yTest)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, c)
	}

	// 8. 선택
	selected, err := Select(result.Candidates)
	if err != nil {
		return nil, err
	}
	result.Selected = selected

	return result, nil
}

// fitCandidate fits a fresh pipeline and evaluates it on the held-out split
func (t *Trainer) fitCandidate(
	name string,
	clf model.Classifier,
	schema contracts.FeatureSchema,
	xTrain *contracts.FeatureTable, yTrain []int,
	xTest *contracts.FeatureTable, yTest []int,
) (Candidate, error) {
	start := time.Now()

	pipeline := model.NewPipeline(schema, clf)
	if err := pipeline.Fit(xTrain, yTrain); err != nil {
		return Candidate{}, fmt.Errorf("candidate %s: %w", name, err)
	}

	pred, err := pipeline.Predict(xTest)
	if err != nil {
		return Candidate{}, fmt.Errorf("candidate %s: %w", name, err)
	}
	metrics, err := model.Evaluate(yTest, pred)
	if err != nil {
		return Candidate{}, fmt.Errorf("candidate %s: %w", name, err)
	}

	c := Candidate{
		Name:     name,
		Params:   clf.Params(),
		Pipeline: pipeline,
		Metrics:  metrics,
		Duration: time.Since(start),
	}

	t.log.Info().
		Str("candidate", name).
		Float64("accuracy", metrics.Accuracy).
		Float64("precision", metrics.Precision).
		Float64("recall", metrics.Recall).
		Float64("f1", metrics.F1).
		Dur("duration", c.Duration).
		Msg("candidate evaluated")

	return c, nil
}

// Select returns the index of the candidate with the highest held-out F1.
// Ties keep the earlier candidate.
func Select(candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("select: no candidates")
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Metrics.F1 > candidates[best].Metrics.F1 {
			best = i
		}
	}
	return best, nil
}
