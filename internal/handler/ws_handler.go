package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/config"
	"github.com/veriexam/proctor-backend/internal/judge"
	"github.com/veriexam/proctor-backend/internal/middleware"
	"github.com/veriexam/proctor-backend/internal/model"
	"github.com/veriexam/proctor-backend/internal/service"
	"github.com/veriexam/proctor-backend/internal/session"
	ws "github.com/veriexam/proctor-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// safeConn serializes writes; the event pump and the read loop both
// write to the same connection.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *safeConn) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *safeConn) writeError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws.WriteError(s.conn, msg)
}

// WSHandler streams a live proctored session.
type WSHandler struct {
	cfg      *config.Config
	manager  *service.SessionManager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(cfg *config.Config, manager *service.SessionManager, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		cfg:      cfg,
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(cfg.AllowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for answers, integrity signals, code runs and
// the live clock. Debouncing and termination live in the session
// controller; this layer only transports.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	ctrl, err := h.manager.Get(sessionID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}

	events, unsubscribe, err := h.manager.Subscribe(sessionID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	defer unsubscribe()

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()
	conn := &safeConn{conn: rawConn}

	wsLog := h.log.With().
		Int("candidate_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.pumpEvents(conn, events)
	}()

	h.readLoop(c.Request.Context(), conn, ctrl, wsLog)
	<-pumpDone
}

// pumpEvents forwards controller events until the subscription closes.
func (h *WSHandler) pumpEvents(conn *safeConn, events <-chan session.Event) {
	for ev := range events {
		switch ev.Type {
		case session.EventClock:
			conn.write(ws.ClockResponse{Event: ws.EventClock, RemainingSeconds: ev.RemainingSeconds})
		case session.EventWarning:
			conn.write(ws.WarningResponse{
				Event:          ws.EventWarning,
				ViolationCount: ev.ViolationCount,
				Threshold:      h.cfg.ViolationThreshold,
			})
		case session.EventTimeExpired:
			conn.write(ws.ClockResponse{Event: ws.EventTimeExpired, RemainingSeconds: 0})
		case session.EventTerminated:
			conn.write(ws.WarningResponse{
				Event:          ws.EventTerminated,
				ViolationCount: ev.ViolationCount,
				Threshold:      h.cfg.ViolationThreshold,
			})
		case session.EventSubmitted:
			if ev.Result != nil {
				conn.write(ws.SubmittedResponse{
					Event:      ws.EventSubmitted,
					Score:      ev.Result.Score,
					Status:     string(ev.Result.Status),
					Terminated: ev.Result.Terminated,
					Reason:     string(ev.Result.Reason),
				})
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *safeConn, ctrl *session.Controller, wsLog zerolog.Logger) {
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn.conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, ctrl, &msg)
		case ws.ActionFocusLost:
			ctrl.FocusLost()
		case ws.ActionSuspend:
			ctrl.SuspendMonitor()
		case ws.ActionResume:
			ctrl.ResumeMonitor()
		case ws.ActionCamera:
			ctrl.SetCameraStatus(msg.Status)
		case ws.ActionRunCode:
			h.handleRunCode(ctx, conn, ctrl, &msg, wsLog)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, ctrl, wsLog)
		case ws.ActionPing:
			conn.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *safeConn, ctrl *session.Controller, msg *ws.RequestPayload) {
	sectionID, err := uuid.Parse(msg.SectionID)
	if err != nil {
		conn.writeError("invalid section_id format")
		return
	}
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}

	if err := ctrl.Answer(sectionID, questionID, msg.Answer); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionTerminal):
			// Writes after submission are dropped without complaint.
		case errors.Is(err, session.ErrUnknownQuestion):
			conn.writeError("question does not belong to this test")
		case errors.Is(err, session.ErrNotInTesting):
			conn.writeError("answers are only accepted during the test")
		default:
			conn.writeError("save failed")
		}
		return
	}

	conn.write(ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

func (h *WSHandler) handleRunCode(ctx context.Context, conn *safeConn, ctrl *session.Controller, msg *ws.RequestPayload, wsLog zerolog.Logger) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}

	sub, err := ctrl.RunCode(ctx, questionID, msg.Code, msg.Language)
	if err != nil {
		var mismatch *judge.LanguageMismatchError
		switch {
		case errors.As(err, &mismatch):
			conn.writeError(mismatch.Error())
		case errors.Is(err, session.ErrSessionTerminal):
			// Late run after submission; nothing to judge.
		case errors.Is(err, session.ErrNotInTesting):
			conn.writeError("code can only be run during the test")
		case errors.Is(err, session.ErrUnknownQuestion):
			conn.writeError("question does not belong to this test")
		case errors.Is(err, session.ErrNotCodingQuestion):
			conn.writeError("not a coding question")
		default:
			wsLog.Error().Err(err).Str("question_id", questionID.String()).Msg("Code run failed")
			conn.writeError("code execution failed")
		}
		return
	}

	conn.write(h.codeResultResponse(ctrl, questionID, sub))
}

// codeResultResponse redacts hidden test cases down to their verdict.
func (h *WSHandler) codeResultResponse(ctrl *session.Controller, questionID uuid.UUID, sub *model.CodeSubmission) ws.CodeResultResponse {
	hidden := make(map[uuid.UUID]bool)
	if q, ok := ctrl.Question(questionID); ok && q.Coding != nil {
		for i := range q.Coding.TestCases {
			tc := &q.Coding.TestCases[i]
			hidden[tc.ID] = tc.IsHidden
		}
	}

	views := make([]ws.CaseResultView, 0, len(sub.Results))
	for i := range sub.Results {
		r := &sub.Results[i]
		view := ws.CaseResultView{
			TestCaseID: r.TestCaseID.String(),
			Passed:     r.Passed,
			Hidden:     hidden[r.TestCaseID],
		}
		if !view.Hidden {
			view.Input = r.Input
			view.ExpectedOutput = r.ExpectedOutput
			view.ActualOutput = r.ActualOutput
			view.ExecutionTimeMs = r.ExecutionTimeMs
		}
		views = append(views, view)
	}

	return ws.CodeResultResponse{
		Event:       ws.EventCodeResult,
		QuestionID:  questionID.String(),
		PassedCount: sub.PassedCount(),
		TotalCount:  sub.TotalCount(),
		AllPassed:   sub.AllPassed(),
		Results:     views,
	}
}

func (h *WSHandler) handleSubmit(ctx context.Context, ctrl *session.Controller, wsLog zerolog.Logger) {
	payload, err := ctrl.Submit(ctx, model.SubmitReasonManual)
	if err != nil {
		// A second submit from any origin is a silent no-op.
		if !errors.Is(err, session.ErrSessionTerminal) {
			wsLog.Error().Err(err).Msg("Submit failed")
		}
		return
	}

	wsLog.Info().
		Int("score", payload.Score).
		Str("status", string(payload.Status)).
		Msg("Session submitted over stream")
	// The submitted event reaches the client through the event pump.
}
