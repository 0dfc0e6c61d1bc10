package judge

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/model"
)

// Harness runs a coding question's full test-case set through the
// sandbox and turns the outcomes into one immutable CodeSubmission.
// Test cases run strictly sequentially in declaration order so results
// stay deterministic and the sandbox is never flooded.
type Harness struct {
	client Client
	log    zerolog.Logger
}

func NewHarness(client Client, log zerolog.Logger) *Harness {
	return &Harness{
		client: client,
		log:    log.With().Str("component", "judge_harness").Logger(),
	}
}

// Run judges code against every test case of the question, hidden ones
// included. A sandbox failure or timeout on a case is absorbed as a
// failed TestCaseResult with empty output; only an obvious language
// mismatch aborts the run before spending a sandbox round-trip.
func (h *Harness) Run(ctx context.Context, spec *model.CodingSpec, code, language string) (*model.CodeSubmission, error) {
	if err := CheckLanguage(code, language); err != nil {
		return nil, err
	}

	results := make([]model.TestCaseResult, 0, len(spec.TestCases))
	for i := range spec.TestCases {
		tc := &spec.TestCases[i]
		results = append(results, h.runCase(ctx, tc, code, language))
	}

	sub := &model.CodeSubmission{
		Code:        code,
		Language:    language,
		SubmittedAt: time.Now(),
		Results:     results,
	}

	h.log.Debug().
		Int("passed", sub.PassedCount()).
		Int("total", sub.TotalCount()).
		Str("language", language).
		Msg("Judge run completed")

	return sub, nil
}

func (h *Harness) runCase(ctx context.Context, tc *model.TestCase, code, language string) model.TestCaseResult {
	result := model.TestCaseResult{
		TestCaseID:     tc.ID,
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
	}

	resp, err := h.client.Execute(ctx, ExecRequest{
		Code:     code,
		Language: language,
		Stdin:    tc.Input,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("test_case_id", tc.ID.String()).Msg("Sandbox execution failed")
		return result
	}
	if !resp.Success {
		result.ActualOutput = resp.Output
		return result
	}

	result.ActualOutput = resp.Output
	result.ExecutionTimeMs = resp.ExecutionTimeMs
	// Trailing-newline differences are not a wrong answer; anything else
	// is compared byte for byte.
	result.Passed = strings.TrimSpace(resp.Output) == strings.TrimSpace(tc.ExpectedOutput)
	return result
}
