package notification

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/tendant/simple-auth/pkg/utils"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(timeout),
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		slog.Info("Adding authentication", "user", config.Username)
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if config.TLS {
		slog.Info("Using TLS Mandatory policy")
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		slog.Info("Using NoTLS policy")
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

func (e *EmailNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	msg, err := e.buildMessage(notification, noticeTemplate)
	if err != nil {
		return err
	}

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "notice", noticeType, "to", utils.MaskEmail(notification.To), "err", err)
		return err
	}

	slog.Info("Email sent successfully", "notice", noticeType, "to", utils.MaskEmail(notification.To), "host", e.SMTPConfig.Host)
	return nil
}

func (e *EmailNotifier) buildMessage(notification NotificationData, noticeTemplate NoticeTemplate) (*mail.Msg, error) {
	if notification.To == "" {
		return nil, fmt.Errorf("email notification requires 'To' address")
	}

	textBody, htmlBody, err := renderBodies(noticeTemplate, notification.Data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return nil, err
	}
	if err := msg.To(notification.To); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return nil, err
	}
	msg.Subject(noticeTemplate.Subject)

	switch {
	case textBody != "" && htmlBody != "":
		msg.SetBodyString(mail.TypeTextPlain, textBody)
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	case htmlBody != "":
		msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, textBody)
	}
	return msg, nil
}

// renderBodies executes the text part with text/template and the HTML part
// with html/template so values are escaped only where markup is produced.
func renderBodies(noticeTemplate NoticeTemplate, data map[string]string) (string, string, error) {
	var textBody, htmlBody string

	if noticeTemplate.Text != "" {
		tmpl, err := texttemplate.New("text").Option("missingkey=error").Parse(noticeTemplate.Text)
		if err != nil {
			slog.Error("Failed to parse text template", "err", err)
			return "", "", err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			slog.Error("Failed to execute text template", "err", err)
			return "", "", err
		}
		textBody = buf.String()
	}

	if noticeTemplate.Html != "" {
		tmpl, err := htmltemplate.New("html").Option("missingkey=error").Parse(noticeTemplate.Html)
		if err != nil {
			slog.Error("Failed to parse HTML template", "err", err)
			return "", "", err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			slog.Error("Failed to execute HTML template", "err", err)
			return "", "", err
		}
		htmlBody = buf.String()
	}

	if textBody == "" && htmlBody == "" {
		return "", "", fmt.Errorf("notification template has no body")
	}
	return textBody, htmlBody, nil
}
