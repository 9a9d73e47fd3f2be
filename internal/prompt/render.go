// Package prompt renders exchange prompt templates against session data.
//
// Templates use mustache-style placeholders: "Hello {{ name }}!". Both
// "{{name}}" and "{{ name }}" forms are accepted. Rendering is total:
// missing keys render as the empty string, and a template without
// placeholders passes through unchanged.
package prompt

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes placeholders in tmpl with values from data.
// A nil data map returns the template verbatim, placeholders included;
// this mirrors fetching a raw prompt for display or editing.
func Render(tmpl string, data map[string]string) string {
	if data == nil {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return data[key]
	})
}
