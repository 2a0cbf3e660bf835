package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/config"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/tokengenerator"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, buf.String(), sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	configFile = ""
	t.Cleanup(func() { configFile = "" })

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config=/etc/legendboard.yaml", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/etc/legendboard.yaml", configFile)
}

func TestMigrateCommand_RejectsUnknownCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate", "sideways"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestNewLogger(t *testing.T) {
	_, isJSON := newLogger(config.Production).Handler().(*slog.JSONHandler)
	assert.True(t, isJSON)

	_, isText := newLogger(config.Development).Handler().(*slog.TextHandler)
	assert.True(t, isText)
}

func TestPurgeResetTokens_StopsOnCancel(t *testing.T) {
	repo := account.NewInMemoryRepository()
	pm, err := login.NewPasswordManager(login.NewBcryptHasher(4), 8)
	require.NoError(t, err)
	tokens, err := tokengenerator.NewJwtTokenGenerator("test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	svc := login.NewLoginService(repo, pm, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeResetTokens(ctx, svc, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop")
	}
}
