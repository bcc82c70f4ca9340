// Package tagging implements placeholder extraction, validation and
// resolution for notification templates. Placeholders use the
// {{name}} form; names are trimmed and deduplicated on extraction.
package tagging

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Extract returns the distinct placeholder names found in text, in
// order of first appearance. Surrounding whitespace inside the braces
// is trimmed and blank names are dropped.
func Extract(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// ExtractFromTemplate collects placeholder names across subject and
// body, deduplicated across both fields in order of first appearance.
// Each field is scanned on its own so a dangling "{{" at the end of
// the subject cannot pair with a "}}" in the body.
func ExtractFromTemplate(subject, body string) []string {
	subjectNames := Extract(subject)
	bodyNames := Extract(body)

	seen := make(map[string]struct{}, len(subjectNames)+len(bodyNames))
	names := make([]string, 0, len(subjectNames)+len(bodyNames))
	for _, name := range append(subjectNames, bodyNames...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
