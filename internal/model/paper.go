package model

import (
	"github.com/google/uuid"
)

// TestPaper is the candidate-facing view of a test definition. Correct
// answers are stripped, and hidden test cases are removed entirely:
// judging happens server-side against the full definition.
type TestPaper struct {
	TestID          uuid.UUID      `json:"test_id"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"duration_minutes"`
	Config          TestConfig     `json:"config"`
	Sections        []PaperSection `json:"sections"`
}

// PaperSection mirrors Section without answer material.
type PaperSection struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Kind      QuestionKind    `json:"kind"`
	Questions []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question as shown to the candidate.
type PaperQuestion struct {
	ID           uuid.UUID       `json:"id"`
	Kind         QuestionKind    `json:"kind"`
	Text         string          `json:"text"`
	Points       int             `json:"points"`
	Options      []string        `json:"options,omitempty"`
	MaxWords     int             `json:"max_words,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	CodeLanguage string          `json:"code_language,omitempty"`
	CodeTemplate string          `json:"code_template,omitempty"`
	TestCases    []PaperTestCase `json:"test_cases,omitempty"`
}

// PaperTestCase is a visible test case. Expected output stays visible for
// non-hidden cases so candidates can self-check before submitting.
type PaperTestCase struct {
	ID             uuid.UUID `json:"id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
}

// Paper builds the redacted candidate view of a test definition.
func (t *TestDefinition) Paper() *TestPaper {
	paper := &TestPaper{
		TestID:          t.ID,
		Name:            t.Name,
		DurationMinutes: t.DurationMinutes,
		Config:          t.Config,
		Sections:        make([]PaperSection, 0, len(t.Sections)),
	}

	for i := range t.Sections {
		sec := &t.Sections[i]
		ps := PaperSection{
			ID:        sec.ID,
			Title:     sec.Title,
			Kind:      sec.Kind,
			Questions: make([]PaperQuestion, 0, len(sec.Questions)),
		}
		for j := range sec.Questions {
			ps.Questions = append(ps.Questions, redactQuestion(&sec.Questions[j]))
		}
		paper.Sections = append(paper.Sections, ps)
	}

	return paper
}

func redactQuestion(q *Question) PaperQuestion {
	pq := PaperQuestion{
		ID:     q.ID,
		Kind:   q.Kind,
		Text:   q.Text,
		Points: q.Points,
	}

	switch q.Kind {
	case KindMultipleChoice:
		if q.MultipleChoice != nil {
			pq.Options = q.MultipleChoice.Options
		}
	case KindWrittenAnswer:
		if q.Written != nil {
			pq.MaxWords = q.Written.MaxWords
		}
	case KindCoding:
		if q.Coding != nil {
			pq.Instructions = q.Coding.Instructions
			pq.CodeLanguage = q.Coding.Language
			pq.CodeTemplate = q.Coding.Template
			for k := range q.Coding.TestCases {
				tc := &q.Coding.TestCases[k]
				if tc.IsHidden {
					continue
				}
				pq.TestCases = append(pq.TestCases, PaperTestCase{
					ID:             tc.ID,
					Input:          tc.Input,
					ExpectedOutput: tc.ExpectedOutput,
				})
			}
		}
	}

	return pq
}
