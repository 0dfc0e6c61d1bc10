package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/model"
	"github.com/veriexam/proctor-backend/internal/repository"
)

// ErrResultNotFound means no persisted result exists for the session yet.
// The persistence queue is async, so a just-submitted session can briefly
// return this to a fast poller.
var ErrResultNotFound = errors.New("result not found")

// ResultService serves persisted results to admin readers.
type ResultService struct {
	resultRepo *repository.ResultRepository
	log        zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, log zerolog.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// GetBySession retrieves one result with its full answer report.
func (s *ResultService) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Result, error) {
	res, err := s.resultRepo.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByTest retrieves all results for a test, newest first.
func (s *ResultService) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error) {
	return s.resultRepo.ListByTest(ctx, testID)
}
