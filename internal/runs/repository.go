package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/delaycast/internal/contracts"
)

// Repository 학습 실행 이력 저장소 (training_runs)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save 실행 이력 저장 (run_id 기준 upsert)
func (r *Repository) Save(ctx context.Context, run Run) error {
	candidates := run.Candidates
	if candidates == nil {
		candidates = []contracts.CandidateMetrics{}
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}

	query := `
		INSERT INTO training_runs
			(run_id, started_at, finished_at, status, source, train_rows, test_rows,
			 selected, f1, accuracy, artifact_path, candidates, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			train_rows = EXCLUDED.train_rows,
			test_rows = EXCLUDED.test_rows,
			selected = EXCLUDED.selected,
			f1 = EXCLUDED.f1,
			accuracy = EXCLUDED.accuracy,
			artifact_path = EXCLUDED.artifact_path,
			candidates = EXCLUDED.candidates,
			error = EXCLUDED.error`

	_, err = r.pool.Exec(ctx, query,
		run.RunID, run.StartedAt, run.FinishedAt, run.Status, run.Source,
		run.TrainRows, run.TestRows, run.Selected, run.F1, run.Accuracy,
		run.ArtifactPath, payload, run.Error,
	)
	if err != nil {
		return fmt.Errorf("save training run %s: %w", run.RunID, err)
	}
	return nil
}

const selectRun = `
	SELECT run_id, started_at, COALESCE(finished_at, started_at), status, source,
		   train_rows, test_rows, selected, f1, accuracy, artifact_path, candidates, error
	FROM training_runs`

// Get 실행 이력 단건 조회
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, selectRun+` WHERE run_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List 최근 실행 이력 조회 (started_at 내림차순)
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, selectRun+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		run     Run
		payload []byte
	)
	err := row.Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.Source,
		&run.TrainRows, &run.TestRows, &run.Selected, &run.F1, &run.Accuracy,
		&run.ArtifactPath, &payload, &run.Error,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &run.Candidates); err != nil {
		return nil, fmt.Errorf("decode candidates of run %s: %w", run.RunID, err)
	}
	return &run, nil
}

// Prune 보관 기간이 지난 실행 이력 삭제
func (r *Repository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM training_runs WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune training runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
