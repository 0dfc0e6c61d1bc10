package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionFocusLost Action = "focus_lost"
	ActionSuspend   Action = "suspend"
	ActionResume    Action = "resume"
	ActionRunCode   Action = "run_code"
	ActionSubmit    Action = "submit"
	ActionCamera    Action = "camera_status"
	ActionPing      Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action     Action `json:"action"`
	SectionID  string `json:"section_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Code       string `json:"code,omitempty"`
	Language   string `json:"language,omitempty"`
	Status     string `json:"status,omitempty"` // camera_status only
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventSaved       Event = "saved"
	EventClock       Event = "clock"
	EventWarning     Event = "warning"
	EventTimeExpired Event = "time_expired"
	EventTerminated  Event = "terminated"
	EventSubmitted   Event = "submitted"
	EventCodeResult  Event = "code_result"
	EventPong        Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ClockResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type WarningResponse struct {
	Event          Event `json:"event"`
	ViolationCount int   `json:"violation_count"`
	Threshold      int   `json:"threshold"`
}

type SubmittedResponse struct {
	Event      Event  `json:"event"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
	Terminated bool   `json:"terminated"`
	Reason     string `json:"reason"`
}

type CodeResultResponse struct {
	Event       Event            `json:"event"`
	QuestionID  string           `json:"question_id"`
	PassedCount int              `json:"passed_count"`
	TotalCount  int              `json:"total_count"`
	AllPassed   bool             `json:"all_passed"`
	Results     []CaseResultView `json:"results"`
}

// CaseResultView is the candidate-visible slice of a test case outcome.
// Hidden cases expose only the verdict.
type CaseResultView struct {
	TestCaseID      string `json:"test_case_id"`
	Passed          bool   `json:"passed"`
	Hidden          bool   `json:"hidden"`
	Input           string `json:"input,omitempty"`
	ExpectedOutput  string `json:"expected_output,omitempty"`
	ActualOutput    string `json:"actual_output,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
