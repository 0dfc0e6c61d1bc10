package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veriexam/proctor-backend/internal/model"
)

// TestRepository handles test definition data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a full test definition including sections, questions
// and test cases. Hidden test cases are included; redaction for the
// candidate-facing paper happens in the service layer.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestDefinition, error) {
	t := &model.TestDefinition{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, duration_minutes, passing_score, status,
		        shuffle_questions, prevent_tab_switching, allow_calculator, allow_code_editor, auto_submit,
		        created_at, updated_at
		 FROM tests WHERE id = $1`, id,
	).Scan(
		&t.ID, &t.Name, &t.DurationMinutes, &t.PassingScore, &t.Status,
		&t.Config.ShuffleQuestions, &t.Config.PreventTabSwitching, &t.Config.AllowCalculator,
		&t.Config.AllowCodeEditor, &t.Config.AutoSubmit,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sections, err := r.listSections(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Sections = sections
	return t, nil
}

func (r *TestRepository) listSections(ctx context.Context, testID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, kind, order_num
		 FROM sections WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	sectionIdx := make(map[uuid.UUID]int)
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.Title, &s.Kind, &s.OrderNum); err != nil {
			return nil, err
		}
		sectionIdx[s.ID] = len(sections)
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questions, questionSection, err := r.listQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		secID := questionSection[questions[i].ID]
		if idx, ok := sectionIdx[secID]; ok {
			sections[idx].Questions = append(sections[idx].Questions, questions[i])
		}
	}
	return sections, nil
}

func (r *TestRepository) listQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, map[uuid.UUID]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.kind, q.question_text, q.points, q.order_num,
		        q.options, q.correct_answer, q.max_words,
		        q.coding_instructions, q.coding_language, q.coding_template
		 FROM questions q
		 JOIN sections s ON s.id = q.section_id
		 WHERE s.test_id = $1
		 ORDER BY s.order_num, q.order_num`, testID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var questions []model.Question
	questionSection := make(map[uuid.UUID]uuid.UUID)
	codingIdx := make(map[uuid.UUID]int)

	for rows.Next() {
		var q model.Question
		var sectionID uuid.UUID
		var options []string
		var correctAnswer, codingInstructions, codingLanguage, codingTemplate *string
		var maxWords *int

		if err := rows.Scan(
			&q.ID, &sectionID, &q.Kind, &q.Text, &q.Points, &q.OrderNum,
			&options, &correctAnswer, &maxWords,
			&codingInstructions, &codingLanguage, &codingTemplate,
		); err != nil {
			return nil, nil, err
		}

		switch q.Kind {
		case model.KindMultipleChoice:
			spec := &model.MultipleChoiceSpec{Options: options}
			if correctAnswer != nil {
				spec.CorrectAnswer = *correctAnswer
			}
			q.MultipleChoice = spec
		case model.KindWrittenAnswer:
			spec := &model.WrittenAnswerSpec{}
			if maxWords != nil {
				spec.MaxWords = *maxWords
			}
			q.Written = spec
		case model.KindCoding:
			spec := &model.CodingSpec{}
			if codingInstructions != nil {
				spec.Instructions = *codingInstructions
			}
			if codingLanguage != nil {
				spec.Language = *codingLanguage
			}
			if codingTemplate != nil {
				spec.Template = *codingTemplate
			}
			q.Coding = spec
			codingIdx[q.ID] = len(questions)
		}

		questionSection[q.ID] = sectionID
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(codingIdx) > 0 {
		if err := r.attachTestCases(ctx, testID, questions, codingIdx); err != nil {
			return nil, nil, err
		}
	}
	return questions, questionSection, nil
}

func (r *TestRepository) attachTestCases(ctx context.Context, testID uuid.UUID, questions []model.Question, codingIdx map[uuid.UUID]int) error {
	rows, err := r.pool.Query(ctx,
		`SELECT tc.id, tc.question_id, tc.input, tc.expected_output, tc.is_hidden, tc.order_num
		 FROM test_cases tc
		 JOIN questions q ON q.id = tc.question_id
		 JOIN sections s ON s.id = q.section_id
		 WHERE s.test_id = $1
		 ORDER BY tc.order_num`, testID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tc model.TestCase
		var questionID uuid.UUID
		if err := rows.Scan(&tc.ID, &questionID, &tc.Input, &tc.ExpectedOutput, &tc.IsHidden, &tc.OrderNum); err != nil {
			return err
		}
		if idx, ok := codingIdx[questionID]; ok && questions[idx].Coding != nil {
			questions[idx].Coding.TestCases = append(questions[idx].Coding.TestCases, tc)
		}
	}
	return rows.Err()
}

// ListPublished retrieves published tests without their nested content.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.TestDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, duration_minutes, passing_score, status,
		        shuffle_questions, prevent_tab_switching, allow_calculator, allow_code_editor, auto_submit,
		        created_at, updated_at
		 FROM tests WHERE status = $1
		 ORDER BY name`, model.TestStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.TestDefinition
	for rows.Next() {
		var t model.TestDefinition
		if err := rows.Scan(
			&t.ID, &t.Name, &t.DurationMinutes, &t.PassingScore, &t.Status,
			&t.Config.ShuffleQuestions, &t.Config.PreventTabSwitching, &t.Config.AllowCalculator,
			&t.Config.AllowCodeEditor, &t.Config.AutoSubmit,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
