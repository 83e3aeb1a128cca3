package types

import "github.com/google/uuid"

// PushPayload is the plaintext the server seals into an envelope and the
// widget recovers by decrypting it. Template fields are compiled template
// strings; the widget interpolates them against Body.Data client-side.
type PushPayload struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Tag       string    `json:"tag,omitempty"`
	Type      Severity  `json:"type"`

	TemplateTitle       string `json:"template_title,omitempty"`
	TemplateDescription string `json:"template_description,omitempty"`
	TemplateMedia       string `json:"template_media,omitempty"`

	Body NotificationBody `json:"body"`
}
