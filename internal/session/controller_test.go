package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriexam/proctor-backend/internal/model"
)

// proctoredDef builds a three-section definition: two multiple choice
// questions, one written answer and one coding question with a hidden
// test case. Ten points total, passing at fifty.
func proctoredDef() *model.TestDefinition {
	return &model.TestDefinition{
		ID:              uuid.New(),
		Name:            "Backend Screening",
		DurationMinutes: 1,
		PassingScore:    50,
		Status:          model.TestStatusPublished,
		Config: model.TestConfig{
			PreventTabSwitching: true,
			AutoSubmit:          true,
		},
		Sections: []model.Section{
			{
				ID:    uuid.New(),
				Title: "Multiple Choice",
				Kind:  model.KindMultipleChoice,
				Questions: []model.Question{
					{
						ID:     uuid.New(),
						Kind:   model.KindMultipleChoice,
						Text:   "Pick B",
						Points: 2,
						MultipleChoice: &model.MultipleChoiceSpec{
							Options:       []string{"A", "B", "C"},
							CorrectAnswer: "B",
						},
					},
					{
						ID:     uuid.New(),
						Kind:   model.KindMultipleChoice,
						Text:   "Pick A",
						Points: 2,
						MultipleChoice: &model.MultipleChoiceSpec{
							Options:       []string{"A", "B"},
							CorrectAnswer: "A",
						},
					},
				},
			},
			{
				ID:    uuid.New(),
				Title: "Essay",
				Kind:  model.KindWrittenAnswer,
				Questions: []model.Question{
					{
						ID:      uuid.New(),
						Kind:    model.KindWrittenAnswer,
						Text:    "Explain indexes",
						Points:  3,
						Written: &model.WrittenAnswerSpec{MaxWords: 200},
					},
				},
			},
			{
				ID:    uuid.New(),
				Title: "Coding",
				Kind:  model.KindCoding,
				Questions: []model.Question{
					{
						ID:     uuid.New(),
						Kind:   model.KindCoding,
						Text:   "Sum two numbers",
						Points: 3,
						Coding: &model.CodingSpec{
							Language: "python",
							TestCases: []model.TestCase{
								{ID: uuid.New(), Input: "1 2", ExpectedOutput: "3"},
								{ID: uuid.New(), Input: "5 5", ExpectedOutput: "10", IsHidden: true},
							},
						},
					},
				},
			},
		},
	}
}

// stubRunner returns canned submissions in sequence and records calls.
type stubRunner struct {
	mu    sync.Mutex
	subs  []*model.CodeSubmission
	err   error
	calls int
}

func (r *stubRunner) Run(ctx context.Context, spec *model.CodingSpec, code, language string) (*model.CodeSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	sub := r.subs[0]
	if len(r.subs) > 1 {
		r.subs = r.subs[1:]
	}
	out := *sub
	out.Code = code
	out.Language = language
	return &out, nil
}

// captureSink records every payload it receives.
type captureSink struct {
	mu       sync.Mutex
	payloads []*model.ResultPayload
	err      error
}

func (s *captureSink) SubmitResult(ctx context.Context, payload *model.ResultPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *captureSink) last() *model.ResultPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

func passingSubmission(spec *model.CodingSpec) *model.CodeSubmission {
	results := make([]model.TestCaseResult, 0, len(spec.TestCases))
	for i := range spec.TestCases {
		tc := &spec.TestCases[i]
		results = append(results, model.TestCaseResult{
			TestCaseID:     tc.ID,
			Passed:         true,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   tc.ExpectedOutput,
		})
	}
	return &model.CodeSubmission{SubmittedAt: time.Now(), Results: results}
}

func failingSubmission(spec *model.CodingSpec) *model.CodeSubmission {
	sub := passingSubmission(spec)
	sub.Results[0].Passed = false
	sub.Results[0].ActualOutput = "wrong"
	return sub
}

// newTestController wires a controller with an idle clock so lifecycle
// tests never race real ticks. Expiry tests override the interval.
func newTestController(def *model.TestDefinition, runner CodeRunner, sink ResultSink, opts Options) *Controller {
	if opts.ClockInterval == 0 {
		opts.ClockInterval = time.Hour
	}
	if runner == nil {
		runner = &stubRunner{}
	}
	return New(def, 101, runner, sink, zerolog.Nop(), opts)
}

func completeAllSteps(t *testing.T, c *Controller) {
	t.Helper()
	for _, step := range Steps() {
		require.NoError(t, c.CompleteStep(step))
	}
	require.Equal(t, PhaseTesting, c.Phase())
}

// waitEvent drains the event stream until the wanted type shows up.
func waitEvent(t *testing.T, c *Controller, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestController_StartsInVerification(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})

	assert.Equal(t, PhaseVerification, c.Phase())
	assert.Equal(t, def.DurationSeconds(), c.Remaining())

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID
	assert.ErrorIs(t, c.Answer(secID, qID, "B"), ErrNotInTesting)

	_, err := c.Submit(context.Background(), model.SubmitReasonManual)
	assert.ErrorIs(t, err, ErrNotInTesting)
}

func TestController_SubmitDuringVerificationDoesNotBurnLatch(t *testing.T) {
	def := proctoredDef()
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{})

	_, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.ErrorIs(t, err, ErrNotInTesting)

	completeAllSteps(t, c)

	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Equal(t, 1, sink.count())
}

func TestController_StepOutOfOrder(t *testing.T) {
	c := newTestController(proctoredDef(), nil, &captureSink{}, Options{})

	err := c.CompleteStep(StepExamRules)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, StepSystemCheck, pre.Missing)
	assert.Equal(t, PhaseVerification, c.Phase())

	assert.ErrorIs(t, c.CompleteStep(Step("nonsense")), ErrUnknownStep)
}

func TestController_LastStepEntersTesting(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})

	for _, step := range Steps()[:3] {
		require.NoError(t, c.CompleteStep(step))
		assert.Equal(t, PhaseVerification, c.Phase())
	}

	require.NoError(t, c.CompleteStep(StepInstructions))
	assert.Equal(t, PhaseTesting, c.Phase())
	assert.Equal(t, def.DurationSeconds(), c.Remaining())

	// Re-completing a step once testing started is a harmless no-op.
	assert.NoError(t, c.CompleteStep(StepSystemCheck))
}

func TestController_AnswerValidation(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})
	completeAllSteps(t, c)

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID

	assert.ErrorIs(t, c.Answer(secID, uuid.New(), "B"), ErrUnknownQuestion)
	// Right question, wrong section.
	assert.ErrorIs(t, c.Answer(def.Sections[1].ID, qID, "B"), ErrUnknownQuestion)

	require.NoError(t, c.Answer(secID, qID, "B"))
	state := c.State()
	assert.Equal(t, "B", state.Answers[qID.String()])
	assert.Equal(t, 1, state.AnsweredCount)
}

func TestController_ManualSubmitScoring(t *testing.T) {
	def := proctoredDef()
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{})
	completeAllSteps(t, c)

	mcSec := def.Sections[0]
	// First answer correct, second wrong.
	require.NoError(t, c.Answer(mcSec.ID, mcSec.Questions[0].ID, "B"))
	require.NoError(t, c.Answer(mcSec.ID, mcSec.Questions[1].ID, "B"))
	require.NoError(t, c.Answer(def.Sections[1].ID, def.Sections[1].Questions[0].ID, "Indexes speed up lookups."))

	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)

	// 2 of 10 points.
	assert.Equal(t, 20, payload.Score)
	assert.Equal(t, model.ResultStatusFailed, payload.Status)
	assert.Equal(t, model.SubmitReasonManual, payload.Reason)
	assert.False(t, payload.Terminated)
	assert.Equal(t, 101, payload.CandidateID)
	assert.Equal(t, def.ID, payload.TestID)
	require.Len(t, payload.Answers, 4)

	mc := payload.Answers[0]
	assert.Equal(t, 2, mc.EarnedPoints)
	assert.Equal(t, "B", mc.CorrectAnswer)

	written := payload.Answers[2]
	assert.True(t, written.PendingReview)
	assert.Equal(t, 0, written.EarnedPoints)
	assert.Equal(t, 3, written.Points)

	// Coding question with no judge run scores as all-failed, with the
	// case inputs preserved and output empty.
	coding := payload.Answers[3]
	require.Len(t, coding.CodingTestResults, 2)
	for _, res := range coding.CodingTestResults {
		assert.False(t, res.Passed)
		assert.Equal(t, "", res.ActualOutput)
		assert.NotEmpty(t, res.Input)
	}
	assert.Equal(t, 0, coding.EarnedPoints)

	assert.Equal(t, PhaseSubmitted, c.Phase())
	assert.Equal(t, 1, sink.count())

	ev := waitEvent(t, c, EventSubmitted)
	require.NotNil(t, ev.Result)
	assert.Equal(t, payload.SessionID, ev.Result.SessionID)
}

func TestController_MCQTrimmedComparison(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})
	completeAllSteps(t, c)

	mcSec := def.Sections[0]
	require.NoError(t, c.Answer(mcSec.ID, mcSec.Questions[0].ID, "  B "))

	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.Answers[0].EarnedPoints)
}

func TestController_SubmitExactlyOnceUnderRace(t *testing.T) {
	def := proctoredDef()
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{})
	completeAllSteps(t, c)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(context.Background(), model.SubmitReasonManual)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrSessionTerminal)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, PhaseSubmitted, c.Phase())
}

func TestController_MutationsRejectedAfterSubmit(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})
	completeAllSteps(t, c)

	_, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID
	assert.ErrorIs(t, c.Answer(secID, qID, "C"), ErrSessionTerminal)
	assert.ErrorIs(t, c.CompleteStep(StepSystemCheck), ErrSessionTerminal)

	_, err = c.RunCode(context.Background(), def.Sections[2].Questions[0].ID, "print(3)", "python")
	assert.ErrorIs(t, err, ErrSessionTerminal)
}

func TestController_RunCodeHistoryAndScoring(t *testing.T) {
	def := proctoredDef()
	spec := def.Sections[2].Questions[0].Coding
	runner := &stubRunner{subs: []*model.CodeSubmission{
		failingSubmission(spec),
		passingSubmission(spec),
	}}
	sink := &captureSink{}
	c := newTestController(def, runner, sink, Options{})
	completeAllSteps(t, c)

	qID := def.Sections[2].Questions[0].ID

	first, err := c.RunCode(context.Background(), qID, "print(0)", "python")
	require.NoError(t, err)
	assert.False(t, first.AllPassed())

	second, err := c.RunCode(context.Background(), qID, "print(a+b)", "python")
	require.NoError(t, err)
	assert.True(t, second.AllPassed())

	history := c.History(qID)
	require.Len(t, history, 2)
	assert.Equal(t, "print(0)", history[0].Code)
	assert.Equal(t, "print(a+b)", history[1].Code)

	// Latest submission decides the coding score.
	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)
	coding := payload.Answers[3]
	assert.Equal(t, 3, coding.EarnedPoints)
}

func TestController_RunCodeRejectsNonCoding(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, &stubRunner{}, &captureSink{}, Options{})
	completeAllSteps(t, c)

	_, err := c.RunCode(context.Background(), def.Sections[0].Questions[0].ID, "x", "python")
	assert.ErrorIs(t, err, ErrNotCodingQuestion)

	_, err = c.RunCode(context.Background(), uuid.New(), "x", "python")
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestController_RunnerErrorLeavesHistoryUntouched(t *testing.T) {
	def := proctoredDef()
	runner := &stubRunner{err: errors.New("sandbox down")}
	c := newTestController(def, runner, &captureSink{}, Options{})
	completeAllSteps(t, c)

	qID := def.Sections[2].Questions[0].ID
	_, err := c.RunCode(context.Background(), qID, "print(3)", "python")
	require.Error(t, err)
	assert.Empty(t, c.History(qID))
}

func TestController_ViolationThresholdTerminates(t *testing.T) {
	def := proctoredDef()
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{
		ViolationThreshold: 2,
		ViolationDebounce:  time.Nanosecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	completeAllSteps(t, c)

	c.FocusLost()
	ev := waitEvent(t, c, EventWarning)
	assert.Equal(t, 1, ev.ViolationCount)
	assert.Equal(t, PhaseTesting, c.Phase())

	c.FocusLost()
	ev = waitEvent(t, c, EventTerminated)
	assert.Equal(t, 2, ev.ViolationCount)

	ev = waitEvent(t, c, EventSubmitted)
	require.NotNil(t, ev.Result)
	assert.True(t, ev.Result.Terminated)
	assert.Equal(t, model.SubmitReasonTerminated, ev.Result.Reason)
	assert.Equal(t, 2, ev.Result.TabSwitchCount)

	assert.Equal(t, PhaseSubmitted, c.Phase())
	assert.Equal(t, 1, sink.count())
}

func TestController_ViolationsCountedButNotEnforced(t *testing.T) {
	def := proctoredDef()
	def.Config.PreventTabSwitching = false
	c := newTestController(def, nil, &captureSink{}, Options{
		ViolationThreshold: 2,
		ViolationDebounce:  time.Nanosecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	completeAllSteps(t, c)

	for i := 1; i <= 3; i++ {
		c.FocusLost()
		ev := waitEvent(t, c, EventWarning)
		assert.Equal(t, i, ev.ViolationCount)
	}

	assert.Equal(t, PhaseTesting, c.Phase())
	assert.Equal(t, 3, c.Violations())
}

func TestController_SuspendedMonitorIgnoresFocusLoss(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{
		ViolationThreshold: 2,
		ViolationDebounce:  time.Nanosecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	completeAllSteps(t, c)

	c.SuspendMonitor()
	c.FocusLost()
	c.FocusLost()

	// Give the run loop time to drain the ignored signals.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.Violations())
	assert.Equal(t, PhaseTesting, c.Phase())

	c.ResumeMonitor()
	c.FocusLost()
	ev := waitEvent(t, c, EventWarning)
	assert.Equal(t, 1, ev.ViolationCount)
}

func TestController_ExpiryAutoSubmits(t *testing.T) {
	def := proctoredDef()
	def.DurationMinutes = 1
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{ClockInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	completeAllSteps(t, c)

	waitEvent(t, c, EventTimeExpired)
	ev := waitEvent(t, c, EventSubmitted)
	require.NotNil(t, ev.Result)
	assert.Equal(t, model.SubmitReasonTimeExpired, ev.Result.Reason)
	assert.False(t, ev.Result.Terminated)

	assert.Equal(t, PhaseSubmitted, c.Phase())
	assert.Equal(t, 1, sink.count())
}

func TestController_ExpiryHoldsWithoutAutoSubmit(t *testing.T) {
	def := proctoredDef()
	def.Config.AutoSubmit = false
	sink := &captureSink{}
	c := newTestController(def, nil, sink, Options{ClockInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	completeAllSteps(t, c)

	waitEvent(t, c, EventTimeExpired)

	// The session stays open and answerable at zero.
	assert.Equal(t, PhaseTesting, c.Phase())
	assert.Equal(t, 0, c.Remaining())

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID
	require.NoError(t, c.Answer(secID, qID, "B"))

	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)
	assert.Equal(t, model.SubmitReasonManual, payload.Reason)
	assert.Equal(t, 1, sink.count())
}

func TestController_SinkFailureDoesNotBlockSubmission(t *testing.T) {
	def := proctoredDef()
	sink := &captureSink{err: errors.New("queue unreachable")}
	c := newTestController(def, nil, sink, Options{})
	completeAllSteps(t, c)

	payload, err := c.Submit(context.Background(), model.SubmitReasonManual)
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Equal(t, PhaseSubmitted, c.Phase())
}

func TestController_StateSnapshot(t *testing.T) {
	def := proctoredDef()
	c := newTestController(def, nil, &captureSink{}, Options{})

	state := c.State()
	assert.Equal(t, PhaseVerification, state.Phase)
	assert.Equal(t, 4, state.TotalQuestions)
	assert.False(t, state.StepCompletion[StepSystemCheck])

	completeAllSteps(t, c)
	c.SetCameraStatus("active")
	c.NextQuestion()

	state = c.State()
	assert.Equal(t, PhaseTesting, state.Phase)
	assert.True(t, state.StepCompletion[StepInstructions])
	assert.Equal(t, 0, state.SectionIndex)
	assert.Equal(t, 1, state.QuestionIndex)
	assert.Equal(t, 50, state.Progress)
	assert.Equal(t, "active", state.CameraStatus)
	assert.Len(t, state.Answers, 4)
	assert.Len(t, state.QuestionOrder, 3)
	assert.Len(t, state.QuestionOrder[def.Sections[0].ID.String()], 2)
}
