package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/simple-auth/pkg/utils"
)

// SentNotification is one call recorded by MockNotifier.
type SentNotification struct {
	NoticeType NoticeType
	Data       NotificationData
	Subject    string
}

// MockNotifier records notices instead of delivering them. Set Err to make
// every Send fail.
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []SentNotification
	Err               error
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, SentNotification{
		NoticeType: noticeType,
		Data:       notification,
		Subject:    template.Subject,
	})
	return nil
}

// Sent returns a copy of the recorded notices.
func (m *MockNotifier) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentNotification(nil), m.SentNotifications...)
}

// LogNotifier only logs that a notice was produced. It never logs template
// data, so codes are not recoverable from its output.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	slog.Warn("SMTP not configured, notice not delivered", "notice", noticeType, "to", utils.MaskEmail(notification.To), "subject", template.Subject)
	return nil
}
