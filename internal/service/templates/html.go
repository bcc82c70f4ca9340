package templates

import "strings"

// EnsureHTML passes HTML bodies through untouched and wraps plain
// text into minimal markup: blank-line-separated paragraphs become
// <p> blocks and remaining line breaks become <br>.
func EnsureHTML(body string) string {
	if looksLikeHTML(body) {
		return body
	}

	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	paragraphs := strings.Split(normalized, "\n\n")

	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(p, "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	open := strings.Index(trimmed, "<")
	if open == -1 {
		return false
	}
	return strings.Index(trimmed[open:], ">") > 0
}
