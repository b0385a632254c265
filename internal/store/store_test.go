package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/skillcert/internal/testdef"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		n, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if n <= last {
			t.Fatalf("sequence %d not greater than %d", n, last)
		}
		last = n
	}
}

func TestLedgerAppendAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.LedgerRepo()
	ctx := context.Background()

	// No events yet.
	ev, err := repo.LatestConfirmation(ctx, "u1", "go")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if ev != nil {
		t.Fatal("expected nil event when none exist")
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, level := range []int{3, 0, 5} {
		e := &ConfirmationEvent{
			UserID:     "u1",
			SkillID:    "go",
			Type:       "acquired",
			Level:      level,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.AppendConfirmation(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if e.ID == 0 || e.Sequence == 0 {
			t.Errorf("append %d: id/sequence not filled: %+v", i, e)
		}
	}

	ev, err = repo.LatestConfirmation(ctx, "u1", "go")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ev.Level != 5 {
		t.Errorf("latest level = %d, want 5", ev.Level)
	}
	if !ev.OccurredAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("occurred_at = %v", ev.OccurredAt)
	}

	all, err := repo.Confirmations(ctx, "u1", "go")
	if err != nil {
		t.Fatalf("confirmations: %v", err)
	}
	if len(all) != 3 || all[0].Level != 3 || all[2].Level != 5 {
		t.Errorf("confirmations not oldest-first: %+v", all)
	}
}

func TestLedgerLatestTieBreaksOnSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.LedgerRepo()
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, level := range []int{2, 4} {
		if err := repo.AppendConfirmation(ctx, &ConfirmationEvent{
			UserID: "u1", SkillID: "go", Type: "admin_set", Level: level, OccurredAt: at,
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	ev, err := repo.LatestConfirmation(ctx, "u1", "go")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ev.Level != 4 {
		t.Errorf("latest level = %d, want 4 (later sequence wins a timestamp tie)", ev.Level)
	}
}

func TestLedgerDeleteAndPairs(t *testing.T) {
	s := openTestStore(t)
	repo := s.LedgerRepo()
	ctx := context.Background()

	var first *ConfirmationEvent
	for _, p := range []Pair{{"u1", "go"}, {"u2", "go"}, {"u1", "sql"}, {"u1", "go"}} {
		e := &ConfirmationEvent{UserID: p.UserID, SkillID: p.SkillID, Type: "acquired", Level: 1}
		if err := repo.AppendConfirmation(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
		if first == nil {
			first = e
		}
	}

	pairs, err := repo.ConfirmationPairs(ctx)
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	if len(pairs) != 3 {
		t.Errorf("pairs = %v, want 3 distinct", pairs)
	}

	users, err := repo.ConfirmationUsers(ctx, "go")
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Errorf("users = %v", users)
	}

	ok, err := repo.DeleteConfirmation(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = repo.DeleteConfirmation(ctx, first.ID)
	if err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestSkillsAndVersions(t *testing.T) {
	s := openTestStore(t)
	repo := s.SkillRepo()
	ctx := context.Background()

	if err := repo.CreateSkill(ctx, &Skill{ID: "go", Name: "Go"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateSkill(ctx, &Skill{ID: "go", Name: "Go"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate create: err = %v, want ErrDuplicate", err)
	}

	sk, err := repo.GetSkill(ctx, "go")
	if err != nil || sk == nil {
		t.Fatalf("get: %v %v", sk, err)
	}
	if sk.AuditDate != nil {
		t.Error("expected nil audit date")
	}

	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	opened := due.AddDate(0, -1, 0)
	if err := repo.UpdateSkillAudit(ctx, "go", due, opened); err != nil {
		t.Fatalf("update audit: %v", err)
	}
	if err := repo.UpdateSkillAudit(ctx, "nope", due, opened); err == nil {
		t.Error("expected error for unknown skill")
	}

	if err := repo.AddSkillVersion(ctx, &SkillVersion{ID: "go@v1.0.0", SkillID: "go", Version: "v1.0.0", AuthorID: "ann"}); err != nil {
		t.Fatalf("add version: %v", err)
	}

	sk, _ = repo.GetSkill(ctx, "go")
	if sk.CurrentVersion != "v1.0.0" {
		t.Errorf("current version = %q", sk.CurrentVersion)
	}
	if sk.AuditDate == nil || !sk.AuditDate.Equal(due) {
		t.Errorf("audit date = %v, want %v", sk.AuditDate, due)
	}
	if sk.AuditOpenedAt == nil || !sk.AuditOpenedAt.Equal(opened) {
		t.Errorf("audit opened = %v, want %v", sk.AuditOpenedAt, opened)
	}

	v, err := repo.GetSkillVersion(ctx, "go@v1.0.0")
	if err != nil || v == nil || v.SkillID != "go" || v.AuthorID != "ann" {
		t.Fatalf("get version: %+v %v", v, err)
	}
	if v, _ := repo.GetSkillVersion(ctx, "missing"); v != nil {
		t.Error("expected nil for missing version")
	}
}

func TestTestDefinitionReplace(t *testing.T) {
	s := openTestStore(t)
	repo := s.TestRepo()
	ctx := context.Background()

	def := &testdef.TestDefinition{
		ID: "t1", SkillVersionID: "go@v1.0.0", TimeLimitSeconds: 60, PassThreshold: 1,
		Questions: []testdef.Question{{ID: "q1", AnswerVariants: []testdef.AnswerVariant{{ID: "a", IsCorrect: true}}}},
	}
	if err := repo.SaveTest(ctx, def); err != nil {
		t.Fatalf("save: %v", err)
	}
	def.Title = "v2"
	def.Questions = append(def.Questions, testdef.Question{ID: "q2", AnswerVariants: []testdef.AnswerVariant{{ID: "b"}}})
	if err := repo.SaveTest(ctx, def); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.GetTest(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "v2" || len(got.Questions) != 2 || !got.IsCorrect("q1", "a") {
		t.Errorf("replaced definition = %+v", got)
	}
	all, _ := repo.ListTests(ctx)
	if len(all) != 1 {
		t.Errorf("list = %d, want 1", len(all))
	}
}

func TestResultExactlyOnce(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResultRepo()
	ctx := context.Background()

	res := &TestResult{
		ID: "r1", UserID: "u1", TestID: "t1", Score: 2, PassThreshold: 1, Passed: true,
		Answers:     []AnswerRecord{{QuestionID: "q1", AnswerID: "a"}},
		CompletedAt: time.Now(),
	}
	if err := repo.CreateResult(ctx, res); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := *res
	dup.ID = "r2"
	if err := repo.CreateResult(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second create: err = %v, want ErrDuplicate", err)
	}

	got, err := repo.GetResult(ctx, "u1", "t1")
	if err != nil || got == nil {
		t.Fatalf("get: %+v %v", got, err)
	}
	if got.ID != "r1" || !got.Passed || len(got.Answers) != 1 {
		t.Errorf("result = %+v", got)
	}
	if got, _ := repo.GetResult(ctx, "u2", "t1"); got != nil {
		t.Error("expected nil for other user")
	}
}

func TestSessionRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := &Session{
		ID: "s1", UserID: "u1", TestID: "t1", StartedAt: start,
		Deadline: start.Add(time.Minute), TimeLimitSeconds: 60,
		Answers: map[string]string{},
	}
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}
	sess.Answers["q1"] = "a"
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("get: %+v %v", got, err)
	}
	if got.Answers["q1"] != "a" || !got.Deadline.Equal(start.Add(time.Minute)) {
		t.Errorf("session = %+v", got)
	}

	expired, err := repo.ExpiredSessions(ctx, start.Add(30*time.Second))
	if err != nil || len(expired) != 0 {
		t.Fatalf("expired before deadline: %v %v", expired, err)
	}
	expired, err = repo.ExpiredSessions(ctx, start.Add(2*time.Minute))
	if err != nil || len(expired) != 1 {
		t.Fatalf("expired after deadline: %v %v", expired, err)
	}

	if err := repo.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.GetSession(ctx, "s1"); got != nil {
		t.Error("expected session to be gone")
	}
}
