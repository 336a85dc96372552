package richtext

import (
	"testing"

	"github.com/yungbote/recommend-backend/internal/domain/recommend"
)

func TestToHTML(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		format recommend.TextFormat
		want   string
	}{
		{"html kept", "<b>x</b>", recommend.FormatHTML, "<b>x</b>"},
		{"plain escaped", "a < b\nc", recommend.FormatPlain, "a &lt; b<br />\nc"},
		{"auto paragraphs", "Dear {NAME}\n\nline one\nline two\n", recommend.FormatAuto, "<p>Dear {NAME}</p>\n<p>line one<br />\nline two</p>"},
		{"auto empty", "  ", recommend.FormatAuto, ""},
	}
	for _, tc := range cases {
		if got := ToHTML(tc.in, tc.format); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestToText(t *testing.T) {
	in := `<p>Dear Ann</p><p>Follow <a href="https://x.test/r?s=abc">this link</a>:<br>https://x.test/plain</p><script>evil()</script>`
	want := "Dear Ann\n\nFollow this link [https://x.test/r?s=abc]:\nhttps://x.test/plain"
	if got := ToText(in); got != want {
		t.Fatalf("ToText: want=%q got=%q", want, got)
	}
}

func TestToTextDoesNotRepeatBareLinks(t *testing.T) {
	in := `<a href="https://x.test/a">https://x.test/a</a>`
	if got := ToText(in); got != "https://x.test/a" {
		t.Fatalf("ToText: want=%q got=%q", "https://x.test/a", got)
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags("Ann <b>Smith</b> &amp; co"); got != "Ann Smith & co" {
		t.Fatalf("StripTags: got=%q", got)
	}
	if got := StripTags("plain"); got != "plain" {
		t.Fatalf("StripTags plain: got=%q", got)
	}
}
