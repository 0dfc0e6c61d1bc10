package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the pass/fail verdict of a submitted session.
type ResultStatus string

const (
	ResultStatusPassed ResultStatus = "PASSED"
	ResultStatusFailed ResultStatus = "FAILED"
)

// SubmitReason records which path produced the submission.
type SubmitReason string

const (
	SubmitReasonManual      SubmitReason = "MANUAL"
	SubmitReasonTimeExpired SubmitReason = "TIME_EXPIRED"
	SubmitReasonTerminated  SubmitReason = "TERMINATED"
)

// AnswerReport is the per-question slice of the final result payload.
type AnswerReport struct {
	SectionID         uuid.UUID        `json:"section_id"`
	QuestionID        uuid.UUID        `json:"question_id"`
	QuestionText      string           `json:"question_text"`
	QuestionType      QuestionKind     `json:"question_type"`
	Answer            string           `json:"answer"`
	Options           []string         `json:"options,omitempty"`
	CorrectAnswer     string           `json:"correct_answer,omitempty"`
	CodingTestResults []TestCaseResult `json:"coding_test_results,omitempty"`
	Points            int              `json:"points"`
	EarnedPoints      int              `json:"earned_points"`
	PendingReview     bool             `json:"pending_review"`
}

// ResultPayload is the final aggregate handed to the persistence
// collaborator. Exactly one payload is produced per session.
type ResultPayload struct {
	SessionID       uuid.UUID      `json:"session_id"`
	TestID          uuid.UUID      `json:"test_id"`
	CandidateID     int            `json:"candidate_id"`
	Score           int            `json:"score"` // 0-100
	Status          ResultStatus   `json:"status"`
	DurationMinutes int            `json:"duration_minutes"`
	Answers         []AnswerReport `json:"answers"`
	TabSwitchCount  int            `json:"tab_switch_count"`
	Terminated      bool           `json:"terminated"`
	Reason          SubmitReason   `json:"reason"`
	SubmittedAt     time.Time      `json:"submitted_at"`
}

// Result is the persisted row shape for a submitted session.
type Result struct {
	ID              uuid.UUID      `json:"id"`
	SessionID       uuid.UUID      `json:"session_id"`
	TestID          uuid.UUID      `json:"test_id"`
	CandidateID     int            `json:"candidate_id"`
	Score           int            `json:"score"`
	Status          ResultStatus   `json:"status"`
	DurationMinutes int            `json:"duration_minutes"`
	Answers         []AnswerReport `json:"answers,omitempty"`
	TabSwitchCount  int            `json:"tab_switch_count"`
	Terminated      bool           `json:"terminated"`
	Reason          SubmitReason   `json:"reason"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	CreatedAt       time.Time      `json:"created_at"`
}
