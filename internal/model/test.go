package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the lifecycle states of a test definition.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// TestConfig holds the per-test behavior switches.
type TestConfig struct {
	ShuffleQuestions    bool `json:"shuffle_questions"`
	PreventTabSwitching bool `json:"prevent_tab_switching"`
	AllowCalculator     bool `json:"allow_calculator"`
	AllowCodeEditor     bool `json:"allow_code_editor"`
	AutoSubmit          bool `json:"auto_submit"`
}

// TestDefinition is the full definition of a proctored test, including
// correct answers and hidden test cases. It is immutable once fetched:
// a session controller holds one instance for the lifetime of an attempt
// and never writes to it.
type TestDefinition struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	PassingScore    int        `json:"passing_score"` // 0-100
	Status          TestStatus `json:"status"`
	Config          TestConfig `json:"config"`
	Sections        []Section  `json:"sections"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Section groups questions of a single kind.
type Section struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Kind      QuestionKind `json:"kind"`
	OrderNum  int          `json:"order_num"`
	Questions []Question   `json:"questions"`
}

// DurationSeconds returns the total attempt duration in seconds.
func (t *TestDefinition) DurationSeconds() int {
	return t.DurationMinutes * 60
}

// QuestionCount returns the total number of questions across all sections.
func (t *TestDefinition) QuestionCount() int {
	n := 0
	for i := range t.Sections {
		n += len(t.Sections[i].Questions)
	}
	return n
}

// FindQuestion looks up a question by section and question ID.
func (t *TestDefinition) FindQuestion(sectionID, questionID uuid.UUID) (*Section, *Question, bool) {
	for i := range t.Sections {
		if t.Sections[i].ID != sectionID {
			continue
		}
		for j := range t.Sections[i].Questions {
			if t.Sections[i].Questions[j].ID == questionID {
				return &t.Sections[i], &t.Sections[i].Questions[j], true
			}
		}
	}
	return nil, nil, false
}

// FindQuestionByID looks up a question by its ID alone. Question IDs are
// unique across the whole test, so the first match wins.
func (t *TestDefinition) FindQuestionByID(questionID uuid.UUID) (*Section, *Question, bool) {
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			if t.Sections[i].Questions[j].ID == questionID {
				return &t.Sections[i], &t.Sections[i].Questions[j], true
			}
		}
	}
	return nil, nil, false
}
