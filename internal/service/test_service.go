package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/config"
	"github.com/veriexam/proctor-backend/internal/model"
	"github.com/veriexam/proctor-backend/internal/repository"
)

// Test service errors.
var (
	ErrTestNotPublished = errors.New("test is not published")
	ErrNoQuestions      = errors.New("test has no questions")
)

// TestService serves test definitions with a Redis cache in front of
// PostgreSQL. Two cached documents exist per test: the full definition
// for the judge harness and scoring (hidden cases, correct answers) and
// the redacted paper rendered to the candidate.
type TestService struct {
	testRepo *repository.TestRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo: testRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// WarmTestCache loads a test's definition and paper from PostgreSQL into Redis.
func (s *TestService) WarmTestCache(ctx context.Context, def *model.TestDefinition) error {
	if def.QuestionCount() == 0 {
		return ErrNoQuestions
	}

	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	paperJSON, err := json.Marshal(def.Paper())
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	// Cache both atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestDefinitionKey(def.ID.String()), defJSON, 0)
	pipe.Set(ctx, config.CacheKey.TestPaperKey(def.ID.String()), paperJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", def.ID.String()).
		Int("questions", def.QuestionCount()).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published tests into Redis on application startup.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		def, err := s.testRepo.GetByID(ctx, tests[i].ID)
		if err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("Failed to load test, skipping")
			continue
		}
		if err := s.WarmTestCache(ctx, def); err != nil {
			s.log.Warn().Err(err).Str("test_id", def.ID.String()).Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetDefinition retrieves the full test definition, cache first. The
// definition includes hidden test cases and correct answers and must
// never be sent to a candidate.
func (s *TestService) GetDefinition(ctx context.Context, testID uuid.UUID) (*model.TestDefinition, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestDefinitionKey(testID.String())).Bytes()
	if err == nil {
		var def model.TestDefinition
		if err := json.Unmarshal(data, &def); err == nil {
			return &def, nil
		}
		s.log.Warn().Str("test_id", testID.String()).Msg("Corrupt cached definition, reloading")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	def, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if def.Status != model.TestStatusPublished {
		return nil, ErrTestNotPublished
	}

	if err := s.WarmTestCache(ctx, def); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Cache refill failed")
	}
	return def, nil
}

// GetPaper retrieves the candidate-facing paper, cache first. Correct
// answers and hidden test cases are already stripped.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID.String())).Bytes()
	if err == nil {
		var paper model.TestPaper
		if err := json.Unmarshal(data, &paper); err == nil {
			return &paper, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	def, err := s.GetDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	return def.Paper(), nil
}
