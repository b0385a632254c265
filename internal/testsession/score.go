package testsession

import (
	"sort"

	"github.com/abhisek/skillcert/internal/store"
	"github.com/abhisek/skillcert/internal/testdef"
)

// Score counts recorded answers that select a correct variant of their
// question. Unanswered questions and answers to unknown questions score zero.
func Score(t *testdef.TestDefinition, answers map[string]string) int {
	score := 0
	for qid, aid := range answers {
		if t.IsCorrect(qid, aid) {
			score++
		}
	}
	return score
}

// answerRecords flattens answers in the test's question order. Answers to
// questions the definition no longer has come last, sorted by id.
func answerRecords(t *testdef.TestDefinition, answers map[string]string) []store.AnswerRecord {
	records := make([]store.AnswerRecord, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, q := range t.Questions {
		if aid, ok := answers[q.ID]; ok {
			records = append(records, store.AnswerRecord{QuestionID: q.ID, AnswerID: aid})
			seen[q.ID] = true
		}
	}

	var rest []string
	for qid := range answers {
		if !seen[qid] {
			rest = append(rest, qid)
		}
	}
	sort.Strings(rest)
	for _, qid := range rest {
		records = append(records, store.AnswerRecord{QuestionID: qid, AnswerID: answers[qid]})
	}
	return records
}
