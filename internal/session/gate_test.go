package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_OrderEnforced(t *testing.T) {
	g := NewGate()

	assert.True(t, g.CanAccess(StepSystemCheck))
	assert.False(t, g.CanAccess(StepIDVerification))
	assert.False(t, g.CanAccess(StepExamRules))
	assert.False(t, g.CanAccess(StepInstructions))

	err := g.Complete(StepIDVerification)
	require.Error(t, err)

	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, StepIDVerification, pre.Step)
	assert.Equal(t, StepSystemCheck, pre.Missing)
	assert.False(t, g.AllComplete())
}

func TestGate_PreconditionNamesEarliestMissing(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.Complete(StepSystemCheck))

	// Jumping two steps ahead must name id_verification, not exam_rules.
	err := g.Complete(StepInstructions)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, StepIDVerification, pre.Missing)
}

func TestGate_CompleteIsIdempotent(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.Complete(StepSystemCheck))
	require.NoError(t, g.Complete(StepSystemCheck))

	comp := g.Completion()
	assert.True(t, comp[StepSystemCheck])
	assert.False(t, comp[StepIDVerification])
}

func TestGate_FullWalk(t *testing.T) {
	g := NewGate()
	for _, step := range Steps() {
		assert.True(t, g.CanAccess(step))
		require.NoError(t, g.Complete(step))
	}
	assert.True(t, g.AllComplete())
}

func TestGate_UnknownStep(t *testing.T) {
	g := NewGate()
	assert.ErrorIs(t, g.Complete(Step("camera_dance")), ErrUnknownStep)
	assert.False(t, g.CanAccess(Step("camera_dance")))
}

func TestGate_NextStep(t *testing.T) {
	g := NewGate()

	next, ok := g.NextStep(StepSystemCheck)
	require.True(t, ok)
	assert.Equal(t, StepIDVerification, next)

	_, ok = g.NextStep(StepInstructions)
	assert.False(t, ok)
}
