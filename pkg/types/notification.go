package types

// Severity is the ternary notification type: urgent, default, informational.
type Severity int

const (
	SeverityUrgent Severity = -1
	SeverityNormal Severity = 0
	SeverityInfo   Severity = 1
)

// Button is one call-to-action rendered inside a toast.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// NotificationBody is the decrypted payload the widget renders. Title and
// Description may still contain {{placeholders}} when a template is attached.
type NotificationBody struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Media       string            `json:"media,omitempty"`
	Link        string            `json:"link,omitempty"`
	Buttons     []Button          `json:"buttons,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}
