package session

// Step identifies one verification step a candidate must complete before
// the question navigator unlocks.
type Step string

const (
	StepSystemCheck    Step = "system_check"
	StepIDVerification Step = "id_verification"
	StepExamRules      Step = "exam_rules"
	StepInstructions   Step = "instructions"
)

// stepOrder is the total order over verification steps. A step is
// accessible iff every strictly earlier step is complete.
var stepOrder = []Step{
	StepSystemCheck,
	StepIDVerification,
	StepExamRules,
	StepInstructions,
}

// Steps returns the verification steps in their required order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// Gate is the ordered verification step machine. It has no side effects
// beyond flag mutation and is not safe for concurrent use on its own;
// the session controller serializes access.
type Gate struct {
	completed map[Step]bool
}

// NewGate creates a gate with no steps completed.
func NewGate() *Gate {
	return &Gate{completed: make(map[Step]bool, len(stepOrder))}
}

func stepIndex(s Step) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// CanAccess reports whether every step strictly before s is complete.
func (g *Gate) CanAccess(s Step) bool {
	idx := stepIndex(s)
	if idx < 0 {
		return false
	}
	for _, earlier := range stepOrder[:idx] {
		if !g.completed[earlier] {
			return false
		}
	}
	return true
}

// Complete marks a step complete. Completing an already-complete step is
// a no-op. Completing a step whose prerequisites are missing fails with
// a PreconditionError naming the earliest missing one.
func (g *Gate) Complete(s Step) error {
	idx := stepIndex(s)
	if idx < 0 {
		return ErrUnknownStep
	}
	if g.completed[s] {
		return nil
	}
	for _, earlier := range stepOrder[:idx] {
		if !g.completed[earlier] {
			return &PreconditionError{Step: s, Missing: earlier}
		}
	}
	g.completed[s] = true
	return nil
}

// NextStep returns the step after s in the order, or false at the last.
func (g *Gate) NextStep(s Step) (Step, bool) {
	idx := stepIndex(s)
	if idx < 0 || idx == len(stepOrder)-1 {
		return "", false
	}
	return stepOrder[idx+1], true
}

// AllComplete reports whether every verification step is complete.
func (g *Gate) AllComplete() bool {
	for _, s := range stepOrder {
		if !g.completed[s] {
			return false
		}
	}
	return true
}

// Completion returns a snapshot of the per-step completion flags.
func (g *Gate) Completion() map[Step]bool {
	out := make(map[Step]bool, len(stepOrder))
	for _, s := range stepOrder {
		out[s] = g.completed[s]
	}
	return out
}
