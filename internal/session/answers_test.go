package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerStore_SeedsEverySlot(t *testing.T) {
	def := navDef(2, 3)
	store := NewAnswerStore(def)

	snap := store.Snapshot()
	assert.Len(t, snap, 5)
	for _, v := range snap {
		assert.Equal(t, "", v)
	}
	assert.Equal(t, 0, store.AnsweredCount())
}

func TestAnswerStore_SetOverwrites(t *testing.T) {
	def := navDef(1)
	store := NewAnswerStore(def)

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID

	store.Set(secID, qID, "B")
	assert.Equal(t, "B", store.Get(secID, qID))

	store.Set(secID, qID, "C")
	assert.Equal(t, "C", store.Get(secID, qID))
	assert.Equal(t, 1, store.AnsweredCount())
}

func TestAnswerStore_BlankNotAnswered(t *testing.T) {
	def := navDef(2)
	store := NewAnswerStore(def)

	secID := def.Sections[0].ID
	q0 := def.Sections[0].Questions[0].ID
	q1 := def.Sections[0].Questions[1].ID

	store.Set(secID, q0, "   ")
	store.Set(secID, q1, "answer")

	assert.False(t, store.IsAnswered(secID, q0))
	assert.True(t, store.IsAnswered(secID, q1))
	assert.Equal(t, 1, store.AnsweredCount())
}

func TestAnswerStore_ClearingReturnsToSentinel(t *testing.T) {
	def := navDef(1)
	store := NewAnswerStore(def)

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID

	store.Set(secID, qID, "draft")
	store.Set(secID, qID, "")

	assert.Equal(t, "", store.Get(secID, qID))
	assert.Equal(t, 0, store.AnsweredCount())
	// The slot itself survives the clear.
	assert.Len(t, store.Snapshot(), 1)
}

func TestAnswerStore_SnapshotIsCopy(t *testing.T) {
	def := navDef(1)
	store := NewAnswerStore(def)

	secID := def.Sections[0].ID
	qID := def.Sections[0].Questions[0].ID

	snap := store.Snapshot()
	snap[AnswerKey{SectionID: secID, QuestionID: qID}] = "tampered"

	assert.Equal(t, "", store.Get(secID, qID))
}

// navDef keys must resolve regardless of navigator shuffling: the store
// is addressed by stable IDs, never by display position.
func TestAnswerStore_KeyedByID(t *testing.T) {
	def := navDef(3)
	store := NewAnswerStore(def)

	secID := def.Sections[0].ID
	target := def.Sections[0].Questions[1].ID
	store.Set(secID, target, "X")

	for _, q := range def.Sections[0].Questions {
		if q.ID == target {
			assert.Equal(t, "X", store.Get(secID, q.ID))
		} else {
			assert.Equal(t, "", store.Get(secID, q.ID))
		}
	}
}
