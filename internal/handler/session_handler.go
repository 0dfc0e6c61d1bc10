package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/middleware"
	"github.com/veriexam/proctor-backend/internal/response"
	"github.com/veriexam/proctor-backend/internal/service"
	"github.com/veriexam/proctor-backend/internal/session"
	"github.com/veriexam/proctor-backend/internal/validator"
)

// SessionHandler handles the proctored session REST surface.
type SessionHandler struct {
	manager     *service.SessionManager
	testService *service.TestService
	log         zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *service.SessionManager, testService *service.TestService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:     manager,
		testService: testService,
		log:         log.With().Str("component", "session_handler").Logger(),
	}
}

type startSessionRequest struct {
	TestID string `json:"test_id" binding:"required,uuid"`
}

// StartSession godoc
// POST /api/v1/sessions
// Creates (or rejoins) the candidate's proctored session for a test.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req startSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// An invite is bound to one test; a candidate cannot start another.
	if claims.InvitedTestID != "" && claims.InvitedTestID != testID.String() {
		response.Fail(c, http.StatusForbidden, response.ErrNotInvitedToTest)
		return
	}

	ctrl, err := h.manager.Start(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
			return
		}
		h.log.Error().Err(err).Str("test_id", testID.String()).Msg("Failed to start session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session_id": ctrl.ID.String(),
		"state":      ctrl.State(),
		"steps":      session.Steps(),
	})
}

// CompleteStep godoc
// POST /api/v1/sessions/:session_id/steps/:step
// Marks one verification step complete; completing the last one starts the test.
func (h *SessionHandler) CompleteStep(c *gin.Context) {
	ctrl := h.ownedSession(c)
	if ctrl == nil {
		return
	}

	if err := ctrl.CompleteStep(session.Step(c.Param("step"))); err != nil {
		var pre *session.PreconditionError
		switch {
		case errors.As(err, &pre):
			response.FailWithFields(c, http.StatusConflict, response.ErrStepOutOfOrder, map[string]string{
				"missing": string(pre.Missing),
			})
		case errors.Is(err, session.ErrUnknownStep):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		case errors.Is(err, session.ErrSessionTerminal):
			response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"phase": ctrl.Phase(),
		"state": ctrl.State(),
	})
}

// GetState godoc
// GET /api/v1/sessions/:session_id/state
// Full snapshot so a reloaded client can rejoin the running session.
func (h *SessionHandler) GetState(c *gin.Context) {
	ctrl := h.ownedSession(c)
	if ctrl == nil {
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// GetPaper godoc
// GET /api/v1/tests/:test_id/paper
// Candidate-facing test paper; correct answers and hidden cases are redacted.
func (h *SessionHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if claims.InvitedTestID != "" && claims.InvitedTestID != testID.String() {
		response.Fail(c, http.StatusForbidden, response.ErrNotInvitedToTest)
		return
	}

	paper, err := h.testService.GetPaper(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// ownedSession resolves the :session_id param to a controller owned by
// the authenticated candidate, writing the error response itself on
// failure.
func (h *SessionHandler) ownedSession(c *gin.Context) *session.Controller {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil
	}

	ctrl, err := h.manager.Get(sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotSessionOwner) {
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
			return nil
		}
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil
	}
	return ctrl
}
