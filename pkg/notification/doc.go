// Package notification delivers templated notices such as password-reset emails.
//
// A NotificationManager maps notice types to templates per delivery system
// and to the Notifier registered for that system:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(smtpConfig),
//	    notification.WithPasswordResetTemplate(),
//	)
//	err = nm.Send(ctx, notification.PasswordResetInit, notification.NotificationData{
//	    To:   "ann@example.com",
//	    Data: map[string]string{"Name": "Ann", "Link": link, "ExpiresIn": "1 hour"},
//	})
//
// EmailNotifier renders text and HTML bodies and sends them through go-mail.
// Transient SMTP failures are retried with exponential backoff inside the
// configured send timeout; permanent SMTP rejections are returned at once.
package notification
