package config

import (
	"time"

	"github.com/tendant/simple-auth/pkg/notification"
)

// EmailConfig holds SMTP email configuration. Without a host, verification
// codes are only written to the log (development).
type EmailConfig struct {
	Host     string        `env:"EMAIL_HOST" env-default:""`
	Port     uint16        `env:"EMAIL_PORT" env-default:"1025"`
	Username string        `env:"EMAIL_USERNAME" env-default:""`
	Password string        `env:"EMAIL_PASSWORD" env-default:""`
	From     string        `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool          `env:"EMAIL_TLS" env-default:"false"`
	Timeout  time.Duration `env:"EMAIL_TIMEOUT" env-default:"30s"`
	CodeTTL  time.Duration `env:"VERIFICATION_CODE_TTL" env-default:"10m"`
}

func (e EmailConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequirePositiveDuration("VERIFICATION_CODE_TTL", e.CodeTTL),
		WhenSet(e.Host, func() *ValidationError { return RequireValidPort("EMAIL_PORT", e.Port) }),
		WhenSet(e.Host, func() *ValidationError { return RequireValidEmail("EMAIL_FROM", e.From) }),
	)
}

// IsConfigured returns true if an SMTP server is configured
func (e EmailConfig) IsConfigured() bool {
	return e.Host != ""
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		TLS:      e.TLS,
		Timeout:  e.Timeout,
	}
}

// NotificationOptions returns the options for NewNotificationManagerWithOptions
func (e EmailConfig) NotificationOptions() []notification.NotificationManagerOption {
	opts := []notification.NotificationManagerOption{notification.WithCodeTTL(e.CodeTTL)}
	if e.IsConfigured() {
		opts = append(opts, notification.WithSMTP(e.ToSMTPConfig()))
	} else {
		opts = append(opts, notification.WithNotifier(notification.EmailSystem, notification.LogNotifier{}))
	}
	return append(opts, notification.WithVerificationCodeTemplate())
}
