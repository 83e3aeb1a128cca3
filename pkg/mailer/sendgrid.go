package mailer

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/enjoys-in/pinglet-sub002/metrics"
)

type SendGridMailer struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
	FromName string        `yaml:"fromName"`
	FromMail string        `yaml:"fromMail"`
}

func NewSendGridMailer(apiKey, fromName, fromMail string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:   apiKey,
		FromName: fromName,
		FromMail: fromMail,
		Timeout:  10 * time.Second,
	}
}

func (s *SendGridMailer) Send(e Email) error {
	from := mail.NewEmail(s.FromName, s.FromMail)

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = e.Subject

	p := mail.NewPersonalization()
	for _, to := range e.To {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)

	if e.Text != "" {
		message.AddContent(mail.NewContent("text/plain", e.Text))
	}
	if e.HTML != "" {
		message.AddContent(mail.NewContent("text/html", e.HTML))
	}

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	body := mail.GetRequestBody(message)
	request, err := http.NewRequest("POST", baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+s.APIKey)
	request.Header.Set("Content-Type", "application/json")
	for k, v := range e.Headers {
		request.Header.Set(k, v)
	}
	if e.IdempotencyKey != "" {
		request.Header.Set("Idempotency-Key", e.IdempotencyKey)
	}

	client := &http.Client{Timeout: s.Timeout}
	resp, err := client.Do(request)
	if err != nil {
		metrics.ExternalAPIFailureTotal.WithLabelValues("sendgrid", "mail").Inc()
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.ExternalAPIFailureTotal.WithLabelValues("sendgrid", "mail").Inc()
		return fmt.Errorf("sendgrid API error: %d", resp.StatusCode)
	}
	metrics.ExternalAPISuccessTotal.WithLabelValues("sendgrid", "mail").Inc()
	return nil
}
