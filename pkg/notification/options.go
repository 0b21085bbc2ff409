package notification

import (
	"embed"
	"log/slog"
	"time"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier for system
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithCodeTTL sets the lifetime quoted in verification emails
func WithCodeTTL(ttl time.Duration) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if ttl > 0 {
			nm.codeTTL = ttl
		}
		return nil
	}
}

// WithVerificationCodeTemplate registers the email verification code template
func WithVerificationCodeTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(VerificationCodeNotice, EmailSystem, NoticeTemplate{
			Subject: "Verify Your Email Address",
			Text:    loadTemplate("templates/email/verification_code.txt"),
			Html:    loadTemplate("templates/email/verification_code.html"),
		})
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
