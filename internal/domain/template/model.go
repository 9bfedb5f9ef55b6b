package template

import (
	"strings"
	"time"
)

// DefaultContentPlaceholder is the marker template authors use to indicate
// where a layout expects its content. Composition itself is positional
// (header, content, footer); the marker is advisory metadata.
const DefaultContentPlaceholder = "{{CONTENT}}"

// Template is a named, versioned content definition. Subject and both body
// variants carry {{variable}} placeholders rendered against a merged
// variable mapping.
type Template struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	LayoutName        string         `json:"layout_name,omitempty"`
	SubjectTemplate   string         `json:"subject_template"`
	BodyHTMLTemplate  string         `json:"body_html_template,omitempty"`
	BodyTextTemplate  string         `json:"body_text_template,omitempty"`
	RequiredVariables []string       `json:"required_variables,omitempty"`
	DefaultVariables  map[string]any `json:"default_variables,omitempty"`
	SupportedChannels []string       `json:"supported_channels,omitempty"`
	Version           int            `json:"version"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// MissingVariables returns the required variable names absent from vars,
// in declaration order.
func (t *Template) MissingVariables(vars map[string]any) []string {
	var missing []string
	for _, name := range t.RequiredVariables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// SupportsChannel reports whether the template is designed for the given channel.
// A template with no declared channels supports all of them.
func (t *Template) SupportsChannel(channel string) bool {
	if len(t.SupportedChannels) == 0 {
		return true
	}
	for _, ch := range t.SupportedChannels {
		if ch == channel {
			return true
		}
	}
	return false
}

// Layout is the shared presentational shell wrapped around rendered template
// content: header and footer HTML plus a CSS block.
type Layout struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	HeaderHTML         string    `json:"header_html,omitempty"`
	FooterHTML         string    `json:"footer_html,omitempty"`
	CSSStyles          string    `json:"css_styles,omitempty"`
	ContentPlaceholder string    `json:"content_placeholder"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Render wraps content in the full HTML shell: doctype and head (with the
// CSS block when present), then header, content, footer.
func (l *Layout) Render(content string) string {
	var html strings.Builder

	html.WriteString("<!DOCTYPE html><html><head>")
	html.WriteString(`<meta charset="UTF-8">`)
	html.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)

	if strings.TrimSpace(l.CSSStyles) != "" {
		html.WriteString("<style>")
		html.WriteString(l.CSSStyles)
		html.WriteString("</style>")
	}

	html.WriteString("</head><body>")
	html.WriteString(l.HeaderHTML)
	html.WriteString(content)
	html.WriteString(l.FooterHTML)
	html.WriteString("</body></html>")

	return html.String()
}

// RenderedMessage is the transient output of one render request.
type RenderedMessage struct {
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}
