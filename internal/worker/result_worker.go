package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/config"
	"github.com/veriexam/proctor-backend/internal/model"
	"github.com/veriexam/proctor-backend/internal/repository"
)

const (
	ResultBatchSize    = 25
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the final-result queue into PostgreSQL. Payloads
// arrive at most once per session; the insert is idempotent on
// session_id so a requeued payload can never double-write.
type ResultWorker struct {
	pool       *pgxpool.Pool
	rdb        *redis.Client
	resultRepo *repository.ResultRepository
	log        zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, resultRepo *repository.ResultRepository, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool:       pool,
		rdb:        rdb,
		resultRepo: resultRepo,
		log:        log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	buffer := make([]*model.ResultPayload, 0, ResultBatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= ResultBatchSize || time.Since(lastFlushTime) >= ResultBatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload model.ResultPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ResultPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkInsert(ctx context.Context, batch []*model.ResultPayload) error {
	n := len(batch)

	sessionIDs := make([]string, 0, n)
	testIDs := make([]string, 0, n)
	candidates := make([]int, 0, n)
	scores := make([]int, 0, n)
	statuses := make([]string, 0, n)
	durations := make([]int, 0, n)
	answerDocs := make([]string, 0, n)
	tabSwitches := make([]int, 0, n)
	terminated := make([]bool, 0, n)
	reasons := make([]string, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		answers, err := json.Marshal(p.Answers)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, p.SessionID.String())
		testIDs = append(testIDs, p.TestID.String())
		candidates = append(candidates, p.CandidateID)
		scores = append(scores, p.Score)
		statuses = append(statuses, string(p.Status))
		durations = append(durations, p.DurationMinutes)
		answerDocs = append(answerDocs, string(answers))
		tabSwitches = append(tabSwitches, p.TabSwitchCount)
		terminated = append(terminated, p.Terminated)
		reasons = append(reasons, string(p.Reason))
		submittedAts = append(submittedAts, p.SubmittedAt)
	}

	query := `
		INSERT INTO results
			(session_id, test_id, candidate_id, score, status, duration_minutes,
			 answers, tab_switch_count, terminated, reason, submitted_at)
		SELECT
			u.session_id, u.test_id, u.candidate_id, u.score, u.status, u.duration_minutes,
			u.answers::jsonb, u.tab_switch_count, u.terminated, u.reason, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::int[],
			$4::int[],
			$5::text[],
			$6::int[],
			$7::text[],
			$8::int[],
			$9::bool[],
			$10::text[],
			$11::timestamptz[]
		) AS u (session_id, test_id, candidate_id, score, status, duration_minutes,
		        answers, tab_switch_count, terminated, reason, submitted_at)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		sessionIDs, testIDs, candidates, scores, statuses, durations,
		answerDocs, tabSwitches, terminated, reasons, submittedAts,
	)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert with requeue
// ----------------------------------------------------------------

func (w *ResultWorker) fallbackInsert(ctx context.Context, batch []*model.ResultPayload) {
	requeueList := make([]*model.ResultPayload, 0)

	for _, p := range batch {
		if err := w.resultRepo.Insert(ctx, p); err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ResultWorker) requeue(ctx context.Context, items []*model.ResultPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue results to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed results back to Redis")
		time.Sleep(2 * time.Second)
	}
}

func (w *ResultWorker) shutdown(buffer []*model.ResultPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
