package testdef

import (
	"errors"
	"reflect"
	"testing"

	"github.com/abhisek/skillcert/internal/apperr"
)

func sampleTest() *TestDefinition {
	return &TestDefinition{
		ID:               "go-basics",
		SkillVersionID:   "go@v1.0.0",
		Title:            "Go basics",
		TimeLimitSeconds: 300,
		PassThreshold:    1,
		Questions: []Question{
			{
				ID:   "q1",
				Text: "Zero value of a map?",
				AnswerVariants: []AnswerVariant{
					{ID: "a1", Text: "nil", IsCorrect: true},
					{ID: "a2", Text: "empty map"},
				},
			},
			{
				ID:   "q2",
				Text: "Does a goroutine have an ID you can read?",
				AnswerVariants: []AnswerVariant{
					{ID: "b1", Text: "yes"},
					{ID: "b2", Text: "no", IsCorrect: true},
				},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TestDefinition)
		wantErr bool
	}{
		{"valid", func(*TestDefinition) {}, false},
		{"threshold equals count", func(d *TestDefinition) { d.PassThreshold = 2 }, false},
		{"threshold above count", func(d *TestDefinition) { d.PassThreshold = 3 }, true},
		{"negative threshold", func(d *TestDefinition) { d.PassThreshold = -1 }, true},
		{"missing id", func(d *TestDefinition) { d.ID = "" }, true},
		{"missing skill version", func(d *TestDefinition) { d.SkillVersionID = "" }, true},
		{"zero time limit", func(d *TestDefinition) { d.TimeLimitSeconds = 0 }, true},
		{"duplicate question", func(d *TestDefinition) { d.Questions[1].ID = "q1" }, true},
		{"duplicate variant", func(d *TestDefinition) { d.Questions[0].AnswerVariants[1].ID = "a1" }, true},
		{"no variants", func(d *TestDefinition) { d.Questions[0].AnswerVariants = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleTest()
			tt.mutate(d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidDefinition) {
					t.Errorf("error %v does not wrap ErrInvalidDefinition", err)
				}
				if !errors.Is(err, apperr.ErrInvalidInput) {
					t.Errorf("error %v does not wrap apperr.ErrInvalidInput", err)
				}
			}
		})
	}
}

func TestIsCorrect(t *testing.T) {
	d := sampleTest()
	tests := []struct {
		q, a string
		want bool
	}{
		{"q1", "a1", true},
		{"q1", "a2", false},
		{"q2", "b2", true},
		{"q2", "a1", false}, // variant of another question
		{"q9", "a1", false},
		{"q1", "zz", false},
	}
	for _, tt := range tests {
		if got := d.IsCorrect(tt.q, tt.a); got != tt.want {
			t.Errorf("IsCorrect(%q, %q) = %v, want %v", tt.q, tt.a, got, tt.want)
		}
	}
}

func TestRedactStripsCorrectness(t *testing.T) {
	d := sampleTest()
	pt := d.Redact()

	if pt.ID != d.ID || pt.PassThreshold != d.PassThreshold || pt.TimeLimitSeconds != d.TimeLimitSeconds {
		t.Errorf("header fields not copied: %+v", pt)
	}
	if len(pt.Questions) != len(d.Questions) {
		t.Fatalf("questions = %d, want %d", len(pt.Questions), len(d.Questions))
	}
	for _, f := range reflect.VisibleFields(reflect.TypeOf(PublicVariant{})) {
		if f.Name == "IsCorrect" {
			t.Fatal("PublicVariant must not expose IsCorrect")
		}
	}
	if got := pt.Questions[0].AnswerVariants[0]; got.ID != "a1" || got.Text != "nil" {
		t.Errorf("variant = %+v", got)
	}

	// Mutating the redacted copy must not touch the definition.
	pt.Questions[0].AnswerVariants[0].Text = "changed"
	if d.Questions[0].AnswerVariants[0].Text != "nil" {
		t.Error("Redact shares memory with the definition")
	}
}
