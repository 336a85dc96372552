package secret

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if len(s) != Length {
			t.Fatalf("length: want=%d got=%d", Length, len(s))
		}
		for _, r := range s {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("unexpected rune %q in %q", r, s)
			}
		}
		if seen[s] {
			t.Fatalf("duplicate token %q", s)
		}
		seen[s] = true
	}
}
