package model

import (
	"time"

	"github.com/google/uuid"
)

// TestCaseResult is the outcome of running candidate code against one
// test case.
type TestCaseResult struct {
	TestCaseID      uuid.UUID `json:"test_case_id"`
	Passed          bool      `json:"passed"`
	Input           string    `json:"input"`
	ActualOutput    string    `json:"actual_output"`
	ExpectedOutput  string    `json:"expected_output"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
}

// CodeSubmission is one full run of a candidate's code against every
// test case of a question. Submissions are immutable once created and
// appended to a per-question history that only ever grows.
type CodeSubmission struct {
	Code        string           `json:"code"`
	Language    string           `json:"language"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Results     []TestCaseResult `json:"results"`
}

// PassedCount is derived from Results so it can never diverge from them.
func (s *CodeSubmission) PassedCount() int {
	n := 0
	for i := range s.Results {
		if s.Results[i].Passed {
			n++
		}
	}
	return n
}

// TotalCount returns the number of judged test cases.
func (s *CodeSubmission) TotalCount() int {
	return len(s.Results)
}

// AllPassed reports whether every test case passed. An empty result set
// counts as not passed.
func (s *CodeSubmission) AllPassed() bool {
	return len(s.Results) > 0 && s.PassedCount() == len(s.Results)
}
