package session

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/veriexam/proctor-backend/internal/model"
)

// Phase is the session's lifecycle phase. Transitions are monotonic:
// Verification -> Testing -> {Terminated -> Submitted | Submitted}.
type Phase string

const (
	PhaseVerification Phase = "VERIFICATION"
	PhaseTesting      Phase = "TESTING"
	PhaseTerminated   Phase = "TERMINATED"
	PhaseSubmitted    Phase = "SUBMITTED"
)

// CodeRunner executes candidate code against a coding question's test
// cases. Implemented by the judge harness.
type CodeRunner interface {
	Run(ctx context.Context, spec *model.CodingSpec, code, language string) (*model.CodeSubmission, error)
}

// ResultSink receives the final result payload exactly once per session.
// A sink failure is reported but never blocks the phase transition: a
// transient persistence fault must not leave a session un-submittable.
type ResultSink interface {
	SubmitResult(ctx context.Context, payload *model.ResultPayload) error
}

// Options tunes controller behavior. Zero values select production
// defaults; tests shrink the clock interval and inject a seeded rand.
type Options struct {
	ViolationThreshold int
	ViolationDebounce  time.Duration
	ClockInterval      time.Duration
	Rand               *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.ViolationThreshold <= 0 {
		o.ViolationThreshold = 4
	}
	if o.ViolationDebounce <= 0 {
		o.ViolationDebounce = 2 * time.Second
	}
	if o.ClockInterval <= 0 {
		o.ClockInterval = time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// Controller owns all mutable state of one proctored attempt. Every
// mutation goes through its methods; async triggers (clock ticks, focus
// loss) funnel through a single internal signal queue drained by Run.
type Controller struct {
	ID          uuid.UUID
	CandidateID int

	def    *model.TestDefinition
	runner CodeRunner
	sink   ResultSink
	log    zerolog.Logger
	opts   Options

	mu           sync.Mutex
	phase        Phase
	gate         *Gate
	nav          *Navigator
	answers      *AnswerStore
	monitor      *Monitor
	clock        *Clock
	clockCancel  context.CancelFunc
	history      map[uuid.UUID][]model.CodeSubmission
	cameraStatus string
	startedAt    time.Time
	testingAt    time.Time
	runCtx       context.Context

	// submitted is the one-shot latch: the first Submit wins, every
	// later call from any origin is a no-op.
	submitted atomic.Bool

	signals chan signal
	events  chan Event
}

// New creates a controller in the Verification phase. The answer store is
// seeded with one empty slot per question, so every question is scorable
// from the first moment of the Testing phase.
func New(def *model.TestDefinition, candidateID int, runner CodeRunner, sink ResultSink, log zerolog.Logger, opts Options) *Controller {
	opts = opts.withDefaults()
	id := uuid.New()

	return &Controller{
		ID:          id,
		CandidateID: candidateID,
		def:         def,
		runner:      runner,
		sink:        sink,
		log: log.With().
			Str("component", "session_controller").
			Str("session_id", id.String()).
			Logger(),
		opts:      opts,
		phase:     PhaseVerification,
		gate:      NewGate(),
		nav:       NewNavigator(def, def.Config.ShuffleQuestions, opts.Rand),
		answers:   NewAnswerStore(def),
		monitor:   NewMonitor(def.Config.PreventTabSwitching, opts.ViolationThreshold, opts.ViolationDebounce),
		history:   make(map[uuid.UUID][]model.CodeSubmission),
		startedAt: time.Now(),
		signals:   make(chan signal, 32),
		events:    make(chan Event, 64),
	}
}

// Events returns the outbound event stream. The channel is buffered and
// never closed by the controller; a slow consumer loses clock ticks
// before anything else.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Run drains the internal signal queue until ctx is cancelled. It must
// be running for the clock and integrity signals to take effect.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-c.signals:
			switch sig.kind {
			case sigTick:
				c.emit(Event{Type: EventClock, RemainingSeconds: sig.remaining})
			case sigExpired:
				c.handleExpired(ctx)
			case sigFocusLost:
				c.handleFocusLost(ctx)
			}
		}
	}
}

// ----------------------------------------------------------------
// Verification phase
// ----------------------------------------------------------------

// CanAccessStep reports whether a verification step is reachable.
func (c *Controller) CanAccessStep(step Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.CanAccess(step)
}

// CompleteStep marks a verification step complete. Completing the last
// step transitions the session to Testing and starts the clock. Out of
// order completion fails with a PreconditionError.
func (c *Controller) CompleteStep(step Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseSubmitted, PhaseTerminated:
		return ErrSessionTerminal
	case PhaseTesting:
		// All steps are already complete; repeat completion is a no-op.
		return nil
	}

	if err := c.gate.Complete(step); err != nil {
		return err
	}

	if c.gate.AllComplete() {
		c.enterTestingLocked()
	}
	return nil
}

// enterTestingLocked transitions Verification -> Testing and starts the
// countdown. Caller holds c.mu.
func (c *Controller) enterTestingLocked() {
	c.phase = PhaseTesting
	c.testingAt = time.Now()

	base := c.runCtx
	if base == nil {
		base = context.Background()
	}
	clockCtx, cancel := context.WithCancel(base)
	c.clock = newClock(c.def.DurationSeconds(), c.opts.ClockInterval)
	c.clockCancel = cancel
	go c.clock.Run(clockCtx, c.signals)

	c.log.Info().
		Int("duration_seconds", c.def.DurationSeconds()).
		Msg("Verification complete, testing started")
}

// ----------------------------------------------------------------
// Testing phase
// ----------------------------------------------------------------

// Answer stores the candidate's current value for a question. Writes are
// accepted only during Testing; calls after a terminal phase return
// ErrSessionTerminal, which callers silently drop.
func (c *Controller) Answer(sectionID, questionID uuid.UUID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseSubmitted, PhaseTerminated:
		return ErrSessionTerminal
	case PhaseVerification:
		return ErrNotInTesting
	}

	if _, _, ok := c.def.FindQuestion(sectionID, questionID); !ok {
		return ErrUnknownQuestion
	}

	c.answers.Set(sectionID, questionID, value)
	return nil
}

// RunCode judges the candidate's code for a coding question and appends
// the submission to that question's append-only history. The sandbox
// round-trip happens outside the controller lock so clock ticks and
// integrity signals keep flowing while code executes.
func (c *Controller) RunCode(ctx context.Context, questionID uuid.UUID, code, language string) (*model.CodeSubmission, error) {
	c.mu.Lock()
	switch c.phase {
	case PhaseSubmitted, PhaseTerminated:
		c.mu.Unlock()
		return nil, ErrSessionTerminal
	case PhaseVerification:
		c.mu.Unlock()
		return nil, ErrNotInTesting
	}
	_, q, ok := c.def.FindQuestionByID(questionID)
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownQuestion
	}
	if q.Kind != model.KindCoding || q.Coding == nil {
		c.mu.Unlock()
		return nil, ErrNotCodingQuestion
	}
	spec := q.Coding
	c.mu.Unlock()

	sub, err := c.runner.Run(ctx, spec, code, language)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.phase == PhaseTesting {
		c.history[questionID] = append(c.history[questionID], *sub)
	}
	c.mu.Unlock()

	return sub, nil
}

// History returns a copy of a question's submission history.
func (c *Controller) History(questionID uuid.UUID) []model.CodeSubmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.history[questionID]
	out := make([]model.CodeSubmission, len(subs))
	copy(out, subs)
	return out
}

// FocusLost reports a visibility/focus-loss signal. It enqueues and
// returns immediately; counting and termination happen on the run loop.
func (c *Controller) FocusLost() {
	select {
	case c.signals <- signal{kind: sigFocusLost}:
	default:
		// Queue full means an event storm; the debounce window would
		// have dropped these signals anyway.
		c.log.Warn().Msg("Signal queue full, focus-loss dropped")
	}
}

// SuspendMonitor pauses violation counting. Callers bracket interactions
// that legitimately blur the page (permission prompts, dialogs).
func (c *Controller) SuspendMonitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitor.Suspend()
}

// ResumeMonitor re-arms violation counting.
func (c *Controller) ResumeMonitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitor.Resume()
}

// SetCameraStatus records the camera collaborator's reported status. The
// controller never owns the device, it only mirrors the status string.
func (c *Controller) SetCameraStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cameraStatus = status
}

// NextQuestion advances the navigator. Returns the new progress percent.
func (c *Controller) NextQuestion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nav.Next()
	return c.nav.Progress()
}

// PrevQuestion moves the navigator back. Returns the new progress percent.
func (c *Controller) PrevQuestion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nav.Prev()
	return c.nav.Progress()
}

func (c *Controller) handleFocusLost(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseTesting {
		c.mu.Unlock()
		return
	}
	count, counted, terminate := c.monitor.FocusLost()
	remaining := c.remainingLocked()
	c.mu.Unlock()

	if !counted {
		return
	}

	c.log.Warn().Int("violations", count).Msg("Integrity violation counted")
	c.emit(Event{Type: EventWarning, ViolationCount: count, RemainingSeconds: remaining})

	if terminate {
		c.terminate(ctx)
	}
}

func (c *Controller) handleExpired(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseTesting {
		c.mu.Unlock()
		return
	}
	autoSubmit := c.def.Config.AutoSubmit
	violations := c.monitor.Violations()
	c.mu.Unlock()

	c.emit(Event{Type: EventTimeExpired, ViolationCount: violations})

	if autoSubmit {
		if _, err := c.Submit(ctx, model.SubmitReasonTimeExpired); err != nil && err != ErrSessionTerminal {
			c.log.Error().Err(err).Msg("Auto-submit on expiry failed")
		}
	}
	// With auto-submit off the clock holds at zero and the session stays
	// answerable until a manual submit.
}

// terminate resolves the violation threshold: Testing -> Terminated,
// then an immediate submission with the Terminated reason.
func (c *Controller) terminate(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseTesting {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseTerminated
	c.stopClockLocked()
	violations := c.monitor.Violations()
	c.mu.Unlock()

	c.log.Warn().Int("violations", violations).Msg("Session terminated by integrity monitor")
	c.emit(Event{Type: EventTerminated, ViolationCount: violations})

	if _, err := c.Submit(ctx, model.SubmitReasonTerminated); err != nil && err != ErrSessionTerminal {
		c.log.Error().Err(err).Msg("Submit after termination failed")
	}
}

// ----------------------------------------------------------------
// Submission
// ----------------------------------------------------------------

// Submit produces the final result payload exactly once. The atomic
// latch makes concurrent calls from the expiry and termination paths
// collapse into a single submission; losers get ErrSessionTerminal.
func (c *Controller) Submit(ctx context.Context, reason model.SubmitReason) (*model.ResultPayload, error) {
	c.mu.Lock()
	if c.phase == PhaseVerification {
		c.mu.Unlock()
		return nil, ErrNotInTesting
	}
	c.mu.Unlock()

	if !c.submitted.CompareAndSwap(false, true) {
		return nil, ErrSessionTerminal
	}

	c.mu.Lock()
	c.stopClockLocked()
	terminated := c.phase == PhaseTerminated || reason == model.SubmitReasonTerminated
	payload := c.buildResultLocked(reason, terminated)
	c.phase = PhaseSubmitted
	c.mu.Unlock()

	c.log.Info().
		Str("reason", string(reason)).
		Int("score", payload.Score).
		Str("status", string(payload.Status)).
		Bool("terminated", payload.Terminated).
		Msg("Session submitted")

	// Persistence is fire-and-forget: a sink failure is surfaced in the
	// logs but the session is Submitted regardless.
	if err := c.sink.SubmitResult(ctx, payload); err != nil {
		c.log.Error().Err(err).Msg("Result persistence failed")
	}

	c.emit(Event{Type: EventSubmitted, Result: payload, ViolationCount: payload.TabSwitchCount})

	return payload, nil
}

func (c *Controller) stopClockLocked() {
	if c.clockCancel != nil {
		c.clockCancel()
		c.clockCancel = nil
	}
}

// buildResultLocked scores every question in declaration order. Caller
// holds c.mu.
func (c *Controller) buildResultLocked(reason model.SubmitReason, terminated bool) *model.ResultPayload {
	var totalPoints, earnedPoints int
	answers := make([]model.AnswerReport, 0, c.def.QuestionCount())

	for i := range c.def.Sections {
		sec := &c.def.Sections[i]
		for j := range sec.Questions {
			q := &sec.Questions[j]
			report := c.scoreQuestionLocked(sec, q)
			totalPoints += q.Points
			earnedPoints += report.EarnedPoints
			answers = append(answers, report)
		}
	}

	score := 0
	if totalPoints > 0 {
		score = int(math.Round(100 * float64(earnedPoints) / float64(totalPoints)))
	}

	status := model.ResultStatusFailed
	if score >= c.def.PassingScore {
		status = model.ResultStatusPassed
	}

	durationMinutes := 0
	if !c.testingAt.IsZero() {
		durationMinutes = int(math.Round(time.Since(c.testingAt).Minutes()))
	}

	return &model.ResultPayload{
		SessionID:       c.ID,
		TestID:          c.def.ID,
		CandidateID:     c.CandidateID,
		Score:           score,
		Status:          status,
		DurationMinutes: durationMinutes,
		Answers:         answers,
		TabSwitchCount:  c.monitor.Violations(),
		Terminated:      terminated,
		Reason:          reason,
		SubmittedAt:     time.Now(),
	}
}

func (c *Controller) scoreQuestionLocked(sec *model.Section, q *model.Question) model.AnswerReport {
	report := model.AnswerReport{
		SectionID:    sec.ID,
		QuestionID:   q.ID,
		QuestionText: q.Text,
		QuestionType: q.Kind,
		Answer:       c.answers.Get(sec.ID, q.ID),
		Points:       q.Points,
	}

	switch q.Kind {
	case model.KindMultipleChoice:
		if q.MultipleChoice != nil {
			report.Options = q.MultipleChoice.Options
			report.CorrectAnswer = q.MultipleChoice.CorrectAnswer
			if strings.TrimSpace(report.Answer) == q.MultipleChoice.CorrectAnswer {
				report.EarnedPoints = q.Points
			}
		}

	case model.KindWrittenAnswer:
		// Never auto-scored; a human grader resolves these later.
		report.PendingReview = true

	case model.KindCoding:
		report.CodingTestResults = c.latestCodingResultsLocked(q)
		allPassed := len(report.CodingTestResults) > 0
		for k := range report.CodingTestResults {
			if !report.CodingTestResults[k].Passed {
				allPassed = false
				break
			}
		}
		if allPassed {
			report.EarnedPoints = q.Points
		}
	}

	return report
}

// latestCodingResultsLocked returns the most recent submission's results,
// or a synthetic all-failed set when the candidate never ran the judge.
func (c *Controller) latestCodingResultsLocked(q *model.Question) []model.TestCaseResult {
	if subs := c.history[q.ID]; len(subs) > 0 {
		latest := subs[len(subs)-1]
		out := make([]model.TestCaseResult, len(latest.Results))
		copy(out, latest.Results)
		return out
	}

	if q.Coding == nil {
		return nil
	}
	out := make([]model.TestCaseResult, 0, len(q.Coding.TestCases))
	for i := range q.Coding.TestCases {
		tc := &q.Coding.TestCases[i]
		out = append(out, model.TestCaseResult{
			TestCaseID:     tc.ID,
			Passed:         false,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   "",
		})
	}
	return out
}

// ----------------------------------------------------------------
// State reads
// ----------------------------------------------------------------

func (c *Controller) remainingLocked() int {
	if c.clock != nil {
		return c.clock.Remaining()
	}
	return c.def.DurationSeconds()
}

// TestID returns the definition's ID.
func (c *Controller) TestID() uuid.UUID {
	return c.def.ID
}

// Question looks a question up by ID in the session's definition.
func (c *Controller) Question(questionID uuid.UUID) (*model.Question, bool) {
	_, q, ok := c.def.FindQuestionByID(questionID)
	return q, ok
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Remaining returns the countdown's remaining seconds.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Violations returns the integrity violation count so far.
func (c *Controller) Violations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor.Violations()
}

// State is the snapshot served to a (possibly reloaded) client.
type State struct {
	SessionID        uuid.UUID           `json:"session_id"`
	TestID           uuid.UUID           `json:"test_id"`
	Phase            Phase               `json:"phase"`
	StepCompletion   map[Step]bool       `json:"step_completion"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	ViolationCount   int                 `json:"violation_count"`
	SectionIndex     int                 `json:"section_index"`
	QuestionIndex    int                 `json:"question_index"`
	Progress         int                 `json:"progress"`
	AnsweredCount    int                 `json:"answered_count"`
	TotalQuestions   int                 `json:"total_questions"`
	Answers          map[string]string   `json:"answers"`
	QuestionOrder    map[string][]string `json:"question_order"`
	CameraStatus     string              `json:"camera_status,omitempty"`
}

// State returns a full snapshot of the session.
func (c *Controller) State() *State {
	c.mu.Lock()
	defer c.mu.Unlock()

	secIdx, qIdx := c.nav.Position()

	answers := make(map[string]string, c.def.QuestionCount())
	for key, val := range c.answers.Snapshot() {
		answers[key.QuestionID.String()] = val
	}

	order := make(map[string][]string, len(c.def.Sections))
	for i := range c.def.Sections {
		secID := c.def.Sections[i].ID
		ids := c.nav.Order(secID)
		strs := make([]string, len(ids))
		for j, id := range ids {
			strs[j] = id.String()
		}
		order[secID.String()] = strs
	}

	return &State{
		SessionID:        c.ID,
		TestID:           c.def.ID,
		Phase:            c.phase,
		StepCompletion:   c.gate.Completion(),
		RemainingSeconds: c.remainingLocked(),
		ViolationCount:   c.monitor.Violations(),
		SectionIndex:     secIdx,
		QuestionIndex:    qIdx,
		Progress:         c.nav.Progress(),
		AnsweredCount:    c.answers.AnsweredCount(),
		TotalQuestions:   c.nav.Total(),
		Answers:          answers,
		QuestionOrder:    order,
		CameraStatus:     c.cameraStatus,
	}
}

// emit pushes an outbound event without ever blocking the run loop.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Debug().Str("type", string(ev.Type)).Msg("Event buffer full, dropped")
	}
}
