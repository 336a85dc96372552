// Package richtext renders stored rich-text fields to HTML and derives plain
// text from HTML for the text part of emails.
package richtext

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/yungbote/recommend-backend/internal/domain/recommend"
)

// ToHTML resolves a stored text in the given format to HTML.
func ToHTML(text string, format recommend.TextFormat) string {
	switch format {
	case recommend.FormatHTML:
		return text
	case recommend.FormatPlain:
		return nl2br(html.EscapeString(normalizeNewlines(text)))
	default:
		return autoParagraphs(text)
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func nl2br(s string) string {
	return strings.ReplaceAll(s, "\n", "<br />\n")
}

// autoParagraphs wraps blocks separated by blank lines in <p> and keeps
// single line breaks.
func autoParagraphs(text string) string {
	text = strings.TrimSpace(normalizeNewlines(text))
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(nl2br(html.EscapeString(para)))
		b.WriteString("</p>\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "table": true,
	"ul": true, "ol": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "blockquote": true, "pre": true, "hr": true,
}

// ToText converts HTML to readable plain text. Block elements become line
// breaks and links keep their target as " [url]".
func ToText(src string) string {
	z := xhtml.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	var hrefs []string
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			return tidyText(b.String())
		case xhtml.TextToken:
			if skip == 0 {
				b.WriteString(collapseSpaces(string(z.Text())))
			}
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				if tt == xhtml.StartTagToken {
					skip++
				}
			case tag == "a":
				href := ""
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "href" {
						href = string(v)
					}
				}
				if tt == xhtml.StartTagToken {
					hrefs = append(hrefs, href)
				}
			case tag == "br":
				b.WriteString("\n")
			case blockTags[tag]:
				b.WriteString("\n")
				if tag == "li" {
					b.WriteString("* ")
				}
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				if skip > 0 {
					skip--
				}
			case tag == "a":
				if n := len(hrefs); n > 0 {
					href := hrefs[n-1]
					hrefs = hrefs[:n-1]
					if href != "" && !strings.HasSuffix(b.String(), href) {
						b.WriteString(" [" + href + "]")
					}
				}
			case tag == "p" || tag == "h1" || tag == "h2" || tag == "h3" || tag == "h4" || tag == "h5" || tag == "h6":
				b.WriteString("\n\n")
			case blockTags[tag]:
				b.WriteString("\n")
			}
		}
	}
}

// StripTags keeps only the text content of src.
func StripTags(src string) string {
	if !strings.ContainsAny(src, "<&") {
		return src
	}
	z := xhtml.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.TextToken:
			b.Write(z.Text())
		}
	}
}

func collapseSpaces(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// tidyText trims every line and squeezes runs of blank lines to one.
func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
