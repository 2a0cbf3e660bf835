package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:       "text and html",
			noticeType: PasswordResetInit,
			system:     EmailSystem,
			template:   NoticeTemplate{Subject: "Reset", Text: "reset {{.Link}}", Html: "<p>{{.Link}}</p>"},
		},
		{
			name:        "empty type",
			system:      EmailSystem,
			template:    NoticeTemplate{Text: "x"},
			shouldError: true,
		},
		{
			name:        "no body",
			noticeType:  PasswordResetInit,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Reset"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	data := NotificationData{To: "ann@x.com", Data: map[string]string{"Link": "https://x/reset/abc"}}

	t.Run("delivers through registered notifier", func(t *testing.T) {
		mock := &MockNotifier{}
		nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithPasswordResetTemplate())
		require.NoError(t, err)

		require.NoError(t, nm.Send(ctx, PasswordResetInit, data))
		sent := mock.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "ann@x.com", sent[0].To)
	})

	t.Run("unknown notice type", func(t *testing.T) {
		nm := NewNotificationManager()
		assert.Error(t, nm.Send(ctx, NoticeType("nope"), data))
	})

	t.Run("template without notifier", func(t *testing.T) {
		nm, err := NewNotificationManagerWithOptions(WithPasswordResetTemplate())
		require.NoError(t, err)
		assert.Error(t, nm.Send(ctx, PasswordResetInit, data))
	})

	t.Run("notifier failure is returned", func(t *testing.T) {
		mock := &MockNotifier{Err: errors.New("smtp down")}
		nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithPasswordResetTemplate())
		require.NoError(t, err)

		err = nm.Send(ctx, PasswordResetInit, data)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "smtp down"))
	})
}

func TestPasswordResetTemplateEmbedded(t *testing.T) {
	html, err := loadTemplate("templates/email/password_reset.html")
	require.NoError(t, err)
	assert.Contains(t, html, "{{.Link}}")

	text, err := loadTemplate("templates/email/password_reset.txt")
	require.NoError(t, err)
	assert.Contains(t, text, "{{.Link}}")
}
