package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veriexam/proctor-backend/internal/model"
)

// ResultRepository handles persisted result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert stores one final result row. The per-question answer reports
// are kept as a jsonb document; they are read back whole, never queried
// field by field.
func (r *ResultRepository) Insert(ctx context.Context, p *model.ResultPayload) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results
		   (session_id, test_id, candidate_id, score, status, duration_minutes,
		    answers, tab_switch_count, terminated, reason, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (session_id) DO NOTHING`,
		p.SessionID, p.TestID, p.CandidateID, p.Score, p.Status, p.DurationMinutes,
		answers, p.TabSwitchCount, p.Terminated, p.Reason, p.SubmittedAt,
	)
	return err
}

// GetBySession retrieves a result by its session ID.
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, test_id, candidate_id, score, status, duration_minutes,
		        answers, tab_switch_count, terminated, reason, submitted_at, created_at
		 FROM results WHERE session_id = $1`, sessionID,
	).Scan(
		&res.ID, &res.SessionID, &res.TestID, &res.CandidateID, &res.Score, &res.Status,
		&res.DurationMinutes, &answers, &res.TabSwitchCount, &res.Terminated, &res.Reason,
		&res.SubmittedAt, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByTest retrieves all results for a test, newest first. The answer
// documents are omitted to keep the listing light.
func (r *ResultRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, test_id, candidate_id, score, status, duration_minutes,
		        tab_switch_count, terminated, reason, submitted_at, created_at
		 FROM results WHERE test_id = $1
		 ORDER BY submitted_at DESC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(
			&res.ID, &res.SessionID, &res.TestID, &res.CandidateID, &res.Score, &res.Status,
			&res.DurationMinutes, &res.TabSwitchCount, &res.Terminated, &res.Reason,
			&res.SubmittedAt, &res.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
