package model

import (
	"github.com/google/uuid"
)

// QuestionKind discriminates the question variants.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
	KindWrittenAnswer  QuestionKind = "WRITTEN_ANSWER"
	KindCoding         QuestionKind = "CODING"
)

// Question is a tagged union over the three question kinds. Exactly one
// of the variant pointers is non-nil, selected by Kind. This replaces the
// loose "everything optional on one object" shape with a shape the
// compiler can check.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Text     string       `json:"text"`
	Points   int          `json:"points"` // positive
	OrderNum int          `json:"order_num"`

	MultipleChoice *MultipleChoiceSpec `json:"multiple_choice,omitempty"`
	Written        *WrittenAnswerSpec  `json:"written,omitempty"`
	Coding         *CodingSpec         `json:"coding,omitempty"`
}

// MultipleChoiceSpec carries the option list (at least two, non-empty)
// and the correct answer.
type MultipleChoiceSpec struct {
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// WrittenAnswerSpec carries the word limit for a free-text answer.
// Written answers are never auto-scored.
type WrittenAnswerSpec struct {
	MaxWords int `json:"max_words"`
}

// CodingSpec carries the coding task: language, starter template and the
// test cases the judging harness runs, hidden ones included.
type CodingSpec struct {
	Instructions string     `json:"instructions"`
	Language     string     `json:"language"`
	Template     string     `json:"template"`
	TestCases    []TestCase `json:"test_cases"`
}

// TestCase is one (input, expected output) pair for a coding question.
// Hidden cases are judged like any other but never shown to candidates.
type TestCase struct {
	ID             uuid.UUID `json:"id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	IsHidden       bool      `json:"is_hidden"`
	OrderNum       int       `json:"order_num"`
}
