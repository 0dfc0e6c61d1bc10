package session

import (
	"strings"

	"github.com/google/uuid"
	"github.com/veriexam/proctor-backend/internal/model"
)

// AnswerKey addresses one answer slot.
type AnswerKey struct {
	SectionID  uuid.UUID
	QuestionID uuid.UUID
}

// AnswerStore maps (section, question) to the candidate's current answer.
// Every question gets a slot seeded with the empty-string sentinel at
// session start, so an answer is always resolvable for scoring. Slots are
// only ever overwritten, never removed. Not safe for concurrent use on
// its own; the session controller serializes access.
type AnswerStore struct {
	values map[AnswerKey]string
}

// NewAnswerStore seeds one empty slot per question in the definition.
func NewAnswerStore(def *model.TestDefinition) *AnswerStore {
	values := make(map[AnswerKey]string, def.QuestionCount())
	for i := range def.Sections {
		sec := &def.Sections[i]
		for j := range sec.Questions {
			values[AnswerKey{SectionID: sec.ID, QuestionID: sec.Questions[j].ID}] = ""
		}
	}
	return &AnswerStore{values: values}
}

// Set overwrites the stored value. Writes are always accepted; validation
// happens at submission time, not here.
func (s *AnswerStore) Set(sectionID, questionID uuid.UUID, value string) {
	s.values[AnswerKey{SectionID: sectionID, QuestionID: questionID}] = value
}

// Get returns the stored value, or the empty-string sentinel if the slot
// was never written.
func (s *AnswerStore) Get(sectionID, questionID uuid.UUID) string {
	return s.values[AnswerKey{SectionID: sectionID, QuestionID: questionID}]
}

// IsAnswered reports whether the slot holds a non-blank value.
func (s *AnswerStore) IsAnswered(sectionID, questionID uuid.UUID) bool {
	return strings.TrimSpace(s.Get(sectionID, questionID)) != ""
}

// AnsweredCount returns the number of non-blank answers.
func (s *AnswerStore) AnsweredCount() int {
	n := 0
	for _, v := range s.values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of all slots, used for state reads.
func (s *AnswerStore) Snapshot() map[AnswerKey]string {
	out := make(map[AnswerKey]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
