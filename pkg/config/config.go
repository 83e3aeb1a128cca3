package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/enjoys-in/pinglet-sub002/pkg/mailer"
)

type Config struct {
	Email    EmailConfig    `yaml:"email"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
}

type EmailConfig struct {
	Provider string                 `yaml:"provider"`
	SMTP     *mailer.SMTPMailer     `yaml:"smtp,omitempty"`
	SendGrid *mailer.SendGridMailer `yaml:"sendgrid,omitempty"`
}

// AlertsConfig controls the failure-digest consumer: who gets mailed when a
// project's notifications keep failing, and how many failures trip it.
type AlertsConfig struct {
	From      string `yaml:"from"`
	Threshold int    `yaml:"threshold"`
}

type WebhooksConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Alerts.Threshold <= 0 {
		cfg.Alerts.Threshold = 10
	}
	return &cfg, nil
}

func BuildMailer(cfg *Config) (mailer.Mailer, error) {
	switch cfg.Email.Provider {
	case "smtp":
		if cfg.Email.SMTP == nil {
			return nil, fmt.Errorf("missing smtp config for email provider")
		}
		return cfg.Email.SMTP, nil

	case "sendgrid":
		if cfg.Email.SendGrid == nil {
			return nil, fmt.Errorf("missing sendgrid config for email provider")
		}
		return cfg.Email.SendGrid, nil

	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Email.Provider)
	}
}
