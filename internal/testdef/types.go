// Package testdef holds the static quiz content that backs a skill version:
// questions, answer variants with correctness flags, the pass threshold and
// the time limit. Definitions are immutable; an edit replaces the whole
// definition.
package testdef

import (
	"errors"
	"fmt"

	"github.com/abhisek/skillcert/internal/apperr"
)

// ErrInvalidDefinition is returned when a definition fails validation.
var ErrInvalidDefinition = fmt.Errorf("%w: invalid test definition", apperr.ErrInvalidInput)

// AnswerVariant is one selectable answer for a question.
type AnswerVariant struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"is_correct" yaml:"is_correct"`
}

// Question is a single quiz item.
type Question struct {
	ID             string          `json:"id" yaml:"id"`
	Text           string          `json:"text" yaml:"text"`
	AnswerVariants []AnswerVariant `json:"answer_variants" yaml:"answer_variants"`
}

// TestDefinition is the full quiz for one skill version.
type TestDefinition struct {
	ID               string     `json:"id" yaml:"id"`
	SkillVersionID   string     `json:"skill_version_id" yaml:"skill_version_id"`
	Title            string     `json:"title" yaml:"title"`
	TimeLimitSeconds int        `json:"time_limit_seconds" yaml:"time_limit_seconds"`
	PassThreshold    int        `json:"pass_threshold" yaml:"pass_threshold"`
	Questions        []Question `json:"questions" yaml:"questions"`
}

// Validate checks structural invariants. The returned error wraps
// ErrInvalidDefinition and lists every problem found.
func (t *TestDefinition) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if t.SkillVersionID == "" {
		errs = append(errs, errors.New("skill_version_id is required"))
	}
	if t.TimeLimitSeconds <= 0 {
		errs = append(errs, fmt.Errorf("time_limit_seconds must be positive, got %d", t.TimeLimitSeconds))
	}
	if t.PassThreshold < 0 {
		errs = append(errs, fmt.Errorf("pass_threshold must not be negative, got %d", t.PassThreshold))
	}
	if t.PassThreshold > len(t.Questions) {
		errs = append(errs, fmt.Errorf("pass_threshold %d exceeds question count %d", t.PassThreshold, len(t.Questions)))
	}

	seenQ := make(map[string]bool, len(t.Questions))
	for i, q := range t.Questions {
		if q.ID == "" {
			errs = append(errs, fmt.Errorf("question %d: id is required", i))
		} else if seenQ[q.ID] {
			errs = append(errs, fmt.Errorf("question %q: duplicate id", q.ID))
		}
		seenQ[q.ID] = true

		if len(q.AnswerVariants) == 0 {
			errs = append(errs, fmt.Errorf("question %q: no answer variants", q.ID))
		}
		seenA := make(map[string]bool, len(q.AnswerVariants))
		for j, a := range q.AnswerVariants {
			if a.ID == "" {
				errs = append(errs, fmt.Errorf("question %q: variant %d: id is required", q.ID, j))
				continue
			}
			if seenA[a.ID] {
				errs = append(errs, fmt.Errorf("question %q: variant %q: duplicate id", q.ID, a.ID))
			}
			seenA[a.ID] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}

// Question returns the question with the given id, or nil.
func (t *TestDefinition) Question(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}

// Variant returns the answer variant with the given id, or nil.
func (q *Question) Variant(id string) *AnswerVariant {
	for i := range q.AnswerVariants {
		if q.AnswerVariants[i].ID == id {
			return &q.AnswerVariants[i]
		}
	}
	return nil
}

// IsCorrect reports whether answerID is a correct variant of questionID.
// Unknown questions or variants are never correct.
func (t *TestDefinition) IsCorrect(questionID, answerID string) bool {
	q := t.Question(questionID)
	if q == nil {
		return false
	}
	v := q.Variant(answerID)
	return v != nil && v.IsCorrect
}
