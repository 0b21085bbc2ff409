package notification

import "context"

// NoticeType identifies a kind of message, independent of the channel it goes out on.
type NoticeType string

const (
	VerificationCodeNotice NoticeType = "verification_code"
)

// NotificationSystem is a delivery channel.
type NotificationSystem string

const (
	EmailSystem NotificationSystem = "email"
)

// NoticeTemplate holds the Go templates rendered with NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values
}

// Notifier delivers one rendered notice over one channel.
type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}

// Mailer is what the identity engine depends on: deliver a verification code
// to an address.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code, displayName string) error
}
