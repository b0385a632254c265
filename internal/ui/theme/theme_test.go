package theme

import (
	"strings"
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "not acquired"},
		{3, "●●●○○"},
		{5, "●●●●●"},
		{7, "7"},
	}
	for _, tt := range tests {
		if got := Level(tt.level); !strings.Contains(got, tt.want) {
			t.Errorf("Level(%d) = %q, want it to contain %q", tt.level, got, tt.want)
		}
	}
}

func TestVerdict(t *testing.T) {
	if !strings.Contains(Verdict(true), "PASS") {
		t.Error("passed verdict should say PASS")
	}
	if !strings.Contains(Verdict(false), "FAIL") {
		t.Error("failed verdict should say FAIL")
	}
}
