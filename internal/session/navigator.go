package session

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/veriexam/proctor-backend/internal/model"
)

// navSection is one section's question order as the candidate sees it.
type navSection struct {
	sectionID uuid.UUID
	questions []uuid.UUID
}

// Navigator traverses the section/question tree and tracks the current
// position. When shuffling is enabled it operates over a per-session
// permutation of each section's questions, computed once at construction.
// Answer keys are stable question IDs, so the permutation never affects
// stored answers. Not safe for concurrent use on its own; the session
// controller serializes access.
type Navigator struct {
	sections []navSection
	total    int
	section  int
	question int
}

// NewNavigator builds the traversal order. rng is only used when shuffle
// is set; tests inject a seeded source for determinism.
func NewNavigator(def *model.TestDefinition, shuffle bool, rng *rand.Rand) *Navigator {
	nav := &Navigator{sections: make([]navSection, 0, len(def.Sections))}

	for i := range def.Sections {
		sec := &def.Sections[i]
		ids := make([]uuid.UUID, len(sec.Questions))
		for j := range sec.Questions {
			ids[j] = sec.Questions[j].ID
		}
		if shuffle {
			fisherYates(ids, rng)
		}
		nav.sections = append(nav.sections, navSection{sectionID: sec.ID, questions: ids})
		nav.total += len(ids)
	}

	return nav
}

// fisherYates shuffles ids in place.
func fisherYates(ids []uuid.UUID, rng *rand.Rand) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Next advances to the next question, rolling into the next section at
// its first question. Returns false (no move) at the absolute last.
func (n *Navigator) Next() bool {
	if n.total == 0 {
		return false
	}
	if n.question < len(n.sections[n.section].questions)-1 {
		n.question++
		return true
	}
	for s := n.section + 1; s < len(n.sections); s++ {
		if len(n.sections[s].questions) > 0 {
			n.section = s
			n.question = 0
			return true
		}
	}
	return false
}

// Prev is the mirror of Next. Returns false at the absolute first.
func (n *Navigator) Prev() bool {
	if n.total == 0 {
		return false
	}
	if n.question > 0 {
		n.question--
		return true
	}
	for s := n.section - 1; s >= 0; s-- {
		if len(n.sections[s].questions) > 0 {
			n.section = s
			n.question = len(n.sections[s].questions) - 1
			return true
		}
	}
	return false
}

// Position returns the current (sectionIndex, questionIndex).
func (n *Navigator) Position() (int, int) {
	return n.section, n.question
}

// Current returns the IDs at the current position.
func (n *Navigator) Current() (sectionID, questionID uuid.UUID) {
	if n.total == 0 {
		return uuid.Nil, uuid.Nil
	}
	sec := n.sections[n.section]
	return sec.sectionID, sec.questions[n.question]
}

// FlatIndex returns the zero-based position in the full flattening of
// all sections' questions in traversal order.
func (n *Navigator) FlatIndex() int {
	idx := 0
	for s := 0; s < n.section; s++ {
		idx += len(n.sections[s].questions)
	}
	return idx + n.question
}

// Total returns the total question count.
func (n *Navigator) Total() int {
	return n.total
}

// Progress returns round(100 * (flatIndex+1) / total). Progress grows
// monotonically under Next regardless of per-section sizes.
func (n *Navigator) Progress() int {
	if n.total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n.FlatIndex()+1) / float64(n.total)))
}

// Order returns the traversal order of question IDs for one section,
// used by state reads so a reloaded client renders the same permutation.
func (n *Navigator) Order(sectionID uuid.UUID) []uuid.UUID {
	for i := range n.sections {
		if n.sections[i].sectionID == sectionID {
			out := make([]uuid.UUID, len(n.sections[i].questions))
			copy(out, n.sections[i].questions)
			return out
		}
	}
	return nil
}
