package notification

import "context"

// NotificationSystem represents a delivery channel.
type NotificationSystem string

// NoticeType identifies a notification (e.g. "password_reset").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	PasswordResetInit NoticeType = "password_reset_init"
)

// NoticeTemplate holds the templates rendered for one notice on one system.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error
}
