package testdef

// PublicVariant is an answer variant with its correctness flag removed.
type PublicVariant struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is a question as shown to a test taker.
type PublicQuestion struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	AnswerVariants []PublicVariant `json:"answer_variants"`
}

// PublicTest is the payload handed to a caller while a session is active.
// It has no field that could carry correctness, so a correct answer cannot
// leak before scoring.
type PublicTest struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	PassThreshold    int              `json:"pass_threshold"`
	Questions        []PublicQuestion `json:"questions"`
}

// Redact returns a copy of t with every IsCorrect flag stripped.
func (t *TestDefinition) Redact() PublicTest {
	pt := PublicTest{
		ID:               t.ID,
		Title:            t.Title,
		TimeLimitSeconds: t.TimeLimitSeconds,
		PassThreshold:    t.PassThreshold,
		Questions:        make([]PublicQuestion, 0, len(t.Questions)),
	}
	for _, q := range t.Questions {
		pq := PublicQuestion{
			ID:             q.ID,
			Text:           q.Text,
			AnswerVariants: make([]PublicVariant, 0, len(q.AnswerVariants)),
		}
		for _, a := range q.AnswerVariants {
			pq.AnswerVariants = append(pq.AnswerVariants, PublicVariant{ID: a.ID, Text: a.Text})
		}
		pt.Questions = append(pt.Questions, pq)
	}
	return pt
}
