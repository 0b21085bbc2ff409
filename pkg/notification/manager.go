package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// NotificationManager routes notices to the notifier registered for a
// channel, using the template registered for (notice, channel).
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	templates map[NoticeType]map[NotificationSystem]NoticeTemplate
	codeTTL   time.Duration
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
		templates: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
		codeTTL:   10 * time.Minute,
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds or replaces the template for a notice on a system.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, tmpl NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if tmpl.Text == "" && tmpl.Html == "" {
		return fmt.Errorf("invalid input: template for %s has no body", noticeType)
	}
	if _, exists := nm.templates[noticeType]; !exists {
		nm.templates[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.templates[noticeType][system] = tmpl
	return nil
}

// Send sends a notification using the specified system and type.
func (nm *NotificationManager) Send(ctx context.Context, noticeType NoticeType, system NotificationSystem, notification NotificationData) error {
	systemTemplates, exists := nm.templates[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}
	tmpl, exists := systemTemplates[system]
	if !exists {
		return fmt.Errorf("no template registered for system: %s under notice type: %s", system, noticeType)
	}
	notifier, exists := nm.notifiers[system]
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}
	return notifier.Send(ctx, noticeType, notification, tmpl)
}

// SendVerificationCode implements Mailer over the email channel.
func (nm *NotificationManager) SendVerificationCode(ctx context.Context, to, code, displayName string) error {
	return nm.Send(ctx, VerificationCodeNotice, EmailSystem, NotificationData{
		To: to,
		Data: map[string]string{
			"DisplayName":   displayName,
			"Code":          code,
			"ExpiryMinutes": strconv.Itoa(int(nm.codeTTL / time.Minute)),
		},
	})
}
