package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Design review", "Design review"},
		{"strips tags", "<b>Design</b> <i>review</i>", "Design review"},
		{"drops scripts", `S1<script>alert("x")</script>`, "S1"},
		{"keeps ampersand as text", "R&D kickoff", "R&D kickoff"},
		{"collapses whitespace", "  Phase \n\t 2  ", "Phase 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_Truncates(t *testing.T) {
	got := PlainText(strings.Repeat("a", 400))
	if n := utf8.RuneCountInString(got); n != maxNameLength {
		t.Errorf("expected %d runes, got %d", maxNameLength, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}
}
