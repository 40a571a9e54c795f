package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bitwise74/files-api/model"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func welcomeTask(t *testing.T, payload WelcomePayload) *asynq.Task {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)

	return asynq.NewTask(TypeWelcome, b)
}

func TestWelcomeMissingUserID(t *testing.T) {
	p := &WelcomeProcessor{DB: newTestDB(t)}

	err := p.ProcessTask(context.Background(), welcomeTask(t, WelcomePayload{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "missing userId")
}

func TestWelcomeUnknownUser(t *testing.T) {
	p := &WelcomeProcessor{DB: newTestDB(t)}

	err := p.ProcessTask(context.Background(), welcomeTask(t, WelcomePayload{UserID: "ghost"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "user not found")
}

func TestWelcomeLogsNotification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(prev)

	db := newTestDB(t)
	require.NoError(t, db.Create(&model.User{
		ID:           "u1",
		Email:        "bob@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().Unix(),
	}).Error)

	p := &WelcomeProcessor{DB: db}

	require.NoError(t, p.ProcessTask(context.Background(), welcomeTask(t, WelcomePayload{UserID: "u1"})))

	entries := logs.FilterMessage("Welcome bob@example.com!").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
}
