package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/config"
	"github.com/veriexam/proctor-backend/internal/model"
	"github.com/veriexam/proctor-backend/internal/session"
)

// Session manager errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another candidate")
)

// retention keeps a submitted session queryable for late GET /state and
// result polling before the registry forgets it.
const retention = 10 * time.Minute

// SessionManager owns the live session controllers. It creates them from
// cached test definitions, pumps their event streams to WebSocket
// subscribers, and hands final results and violation events to the Redis
// persistence queues.
type SessionManager struct {
	cfg         *config.Config
	testService *TestService
	runner      session.CodeRunner
	rdb         *redis.Client
	log         zerolog.Logger

	mu          sync.RWMutex
	sessions    map[uuid.UUID]*managedSession
	byCandidate map[int]uuid.UUID
}

type managedSession struct {
	ctrl   *session.Controller
	cancel context.CancelFunc

	mu      sync.Mutex
	subs    map[int]chan session.Event
	nextSub int
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(cfg *config.Config, testService *TestService, runner session.CodeRunner, rdb *redis.Client, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		cfg:         cfg,
		testService: testService,
		runner:      runner,
		rdb:         rdb,
		log:         log.With().Str("component", "session_manager").Logger(),
		sessions:    make(map[uuid.UUID]*managedSession),
		byCandidate: make(map[int]uuid.UUID),
	}
}

// Start creates a session controller for the candidate, or returns the
// already running one so a reloaded client rejoins instead of forking a
// second attempt.
func (m *SessionManager) Start(ctx context.Context, candidateID int, testID uuid.UUID) (*session.Controller, error) {
	m.mu.Lock()
	if existingID, ok := m.byCandidate[candidateID]; ok {
		if ms, ok := m.sessions[existingID]; ok && ms.ctrl.Phase() != session.PhaseSubmitted {
			m.mu.Unlock()
			return ms.ctrl, nil
		}
	}
	m.mu.Unlock()

	def, err := m.testService.GetDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}

	ctrl := session.New(def, candidateID, m.runner, m, m.log, session.Options{
		ViolationThreshold: m.cfg.ViolationThreshold,
		ViolationDebounce:  m.cfg.ViolationDebounce,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ms := &managedSession{
		ctrl:   ctrl,
		cancel: cancel,
		subs:   make(map[int]chan session.Event),
	}

	m.mu.Lock()
	m.sessions[ctrl.ID] = ms
	m.byCandidate[candidateID] = ctrl.ID
	m.mu.Unlock()

	go ctrl.Run(runCtx)
	go m.pump(runCtx, ms)

	m.rdb.Set(ctx, config.CacheKey.ActiveSessionKey(candidateID), ctrl.ID.String(), 0)

	m.log.Info().
		Str("session_id", ctrl.ID.String()).
		Int("candidate_id", candidateID).
		Str("test_id", testID.String()).
		Msg("Session started")

	return ctrl, nil
}

// Get returns the controller for a session owned by the candidate.
func (m *SessionManager) Get(sessionID uuid.UUID, candidateID int) (*session.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if ms.ctrl.CandidateID != candidateID {
		return nil, ErrNotSessionOwner
	}
	return ms.ctrl, nil
}

// Subscribe attaches a consumer to a session's event stream. The returned
// cancel func must be called when the consumer disconnects.
func (m *SessionManager) Subscribe(sessionID uuid.UUID, candidateID int) (<-chan session.Event, func(), error) {
	m.mu.RLock()
	ms, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	if ms.ctrl.CandidateID != candidateID {
		return nil, nil, ErrNotSessionOwner
	}

	ch := make(chan session.Event, 32)
	ms.mu.Lock()
	id := ms.nextSub
	ms.nextSub++
	ms.subs[id] = ch
	ms.mu.Unlock()

	cancel := func() {
		ms.mu.Lock()
		if _, ok := ms.subs[id]; ok {
			delete(ms.subs, id)
			close(ch)
		}
		ms.mu.Unlock()
	}
	return ch, cancel, nil
}

// pump is the single consumer of a controller's event stream. It fans
// events out to subscribers and does the registry's own bookkeeping.
func (m *SessionManager) pump(ctx context.Context, ms *managedSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ms.ctrl.Events():
			if ev.Type == session.EventWarning || ev.Type == session.EventTerminated {
				m.queueViolation(ms.ctrl, ev)
			}

			ms.mu.Lock()
			for _, ch := range ms.subs {
				select {
				case ch <- ev:
				default:
				}
			}
			ms.mu.Unlock()

			if ev.Type == session.EventSubmitted {
				m.finish(ms)
			}
		}
	}
}

// finish releases the candidate slot and schedules the session's removal.
func (m *SessionManager) finish(ms *managedSession) {
	ctrl := ms.ctrl
	m.rdb.Del(context.Background(), config.CacheKey.ActiveSessionKey(ctrl.CandidateID))

	time.AfterFunc(retention, func() {
		m.mu.Lock()
		delete(m.sessions, ctrl.ID)
		if m.byCandidate[ctrl.CandidateID] == ctrl.ID {
			delete(m.byCandidate, ctrl.CandidateID)
		}
		m.mu.Unlock()
		ms.cancel()
	})
}

// SubmitResult pushes the final payload onto the Redis persistence queue.
// Implements session.ResultSink; a queue failure is surfaced to the
// controller's log but the session still finishes.
func (m *SessionManager) SubmitResult(ctx context.Context, payload *model.ResultPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return m.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// queueViolation records one integrity event for async persistence.
func (m *SessionManager) queueViolation(ctrl *session.Controller, ev session.Event) {
	raw, _ := json.Marshal(map[string]interface{}{
		"session_id":      ctrl.ID.String(),
		"candidate_id":    ctrl.CandidateID,
		"violation_count": ev.ViolationCount,
		"terminated":      ev.Type == session.EventTerminated,
		"occurred_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err := m.rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, raw).Err(); err != nil {
		m.log.Error().Err(err).Str("session_id", ctrl.ID.String()).Msg("Failed to queue violation")
	}
}

// Shutdown stops every live session's run loop. Unsubmitted sessions are
// abandoned; clients reconnect against a fresh process.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.sessions {
		ms.cancel()
	}
}
