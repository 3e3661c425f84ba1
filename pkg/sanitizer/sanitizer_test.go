package sanitizer

import (
	"strings"
	"testing"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"plain text", "plain text"},
		{"  leading and trailing  ", "leading and trailing"},
		{"collapse    inner\t\twhitespace", "collapse inner whitespace"},
		{"line\nbreaks\ncollapse", "line breaks collapse"},
	}
	for _, tt := range tests {
		if got := TrimAndNormalize(tt.in); got != tt.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeNote(t *testing.T) {
	if got := SanitizeNote("refund approved\x00 after phone call"); got != "refund approved after phone call" {
		t.Errorf("control characters not stripped: %q", got)
	}

	long := strings.Repeat("x", MaxNoteLength+50)
	if got := SanitizeNote(long); len([]rune(got)) != MaxNoteLength {
		t.Errorf("note not capped: len=%d", len([]rune(got)))
	}
}

func TestSanitizeNoteIdempotent(t *testing.T) {
	in := "  resolved \t outside   the payment system "
	once := SanitizeNote(in)
	twice := SanitizeNote(once)
	if once != twice {
		t.Errorf("SanitizeNote not idempotent: %q vs %q", once, twice)
	}
}
