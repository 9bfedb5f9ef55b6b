package template

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {{name}} markers, allowing whitespace around the name.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Render substitutes every {{name}} placeholder in tmpl with the string form
// of the bound value from vars. Absent variables degrade to the empty string;
// the renderer never fails on data. Non-placeholder text passes through
// unchanged.
func Render(tmpl string, vars map[string]any) string {
	if tmpl == "" {
		return ""
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := vars[name]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}
