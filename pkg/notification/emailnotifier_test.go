package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	calls int
	errs  []error
	last  *mail.Msg
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	f.calls++
	if len(messages) > 0 {
		f.last = messages[0]
	}
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func testNotifier(sender *fakeSender) *EmailNotifier {
	n := newEmailNotifier(SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com", Timeout: time.Second}, sender)
	n.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}
	return n
}

var resetTemplate = NoticeTemplate{
	Subject: "Reset",
	Text:    "Hi {{.Name}}, open {{.Link}}",
	Html:    "<p>Hi {{.Name}}, <a href=\"{{.Link}}\">reset</a></p>",
}

func TestEmailNotifier_Send(t *testing.T) {
	data := NotificationData{To: "ann@x.com", Data: map[string]string{"Name": "Ann", "Link": "https://x/reset/abc"}}

	t.Run("renders both bodies", func(t *testing.T) {
		sender := &fakeSender{}
		require.NoError(t, testNotifier(sender).Send(context.Background(), PasswordResetInit, data, resetTemplate))
		assert.Equal(t, 1, sender.calls)

		var buf bytes.Buffer
		_, err := sender.last.WriteTo(&buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Hi Ann, open https://x/reset/abc")
		assert.Contains(t, buf.String(), "ann@x.com")
	})

	t.Run("retries transient failure", func(t *testing.T) {
		sender := &fakeSender{errs: []error{errors.New("dial tcp: connection refused")}}
		require.NoError(t, testNotifier(sender).Send(context.Background(), PasswordResetInit, data, resetTemplate))
		assert.Equal(t, 2, sender.calls)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		down := errors.New("dial tcp: connection refused")
		sender := &fakeSender{errs: []error{down, down, down, down}}
		err := testNotifier(sender).Send(context.Background(), PasswordResetInit, data, resetTemplate)
		require.Error(t, err)
		assert.Equal(t, 3, sender.calls)
	})

	t.Run("requires recipient", func(t *testing.T) {
		sender := &fakeSender{}
		err := testNotifier(sender).Send(context.Background(), PasswordResetInit, NotificationData{}, resetTemplate)
		assert.Error(t, err)
		assert.Zero(t, sender.calls)
	})

	t.Run("bad template", func(t *testing.T) {
		sender := &fakeSender{}
		err := testNotifier(sender).Send(context.Background(), PasswordResetInit, data, NoticeTemplate{Text: "{{.Name"})
		assert.Error(t, err)
		assert.Zero(t, sender.calls)
	})
}
