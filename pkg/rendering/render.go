package rendering

import (
	"strings"

	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// Rendered is the displayable content of one toast after substitution.
type Rendered struct {
	Title       string
	Description string
	Media       string
}

// Interpolate substitutes {{key}} placeholders in tmpl from data. Templates
// come from user-configured project settings, so only literal text and
// variable lookup are supported: no conditionals, no loops, nothing
// evaluated. Missing keys render as empty. Unterminated braces are kept as
// literal text.
func Interpolate(tmpl string, data map[string]string) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.Index(tmpl, "{{")
		if open < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		b.WriteString(tmpl[:open])
		rest := tmpl[open+2:]
		close := strings.Index(rest, "}}")
		if close < 0 {
			b.WriteString(tmpl[open:])
			return b.String()
		}
		key := strings.TrimSpace(rest[:close])
		b.WriteString(data[key])
		tmpl = rest[close+2:]
	}
}

// Render applies the compiled template's fields over a notification body,
// interpolating the body's data map into every text field. Deterministic:
// same template and data always produce the same output.
func Render(title, description, media string, body types.NotificationBody) Rendered {
	data := body.Data
	if title == "" {
		title = body.Title
	}
	if description == "" {
		description = body.Description
	}
	if media == "" {
		media = body.Media
	}
	return Rendered{
		Title:       Interpolate(title, data),
		Description: Interpolate(description, data),
		Media:       Interpolate(media, data),
	}
}
