package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bitwise74/files-api/model"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WelcomeProcessor consumes welcome jobs enqueued on user creation.
// The notification is only logged, nothing gets delivered anywhere
type WelcomeProcessor struct {
	DB *gorm.DB
}

func (p *WelcomeProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload WelcomePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid welcome payload, %v: %w", err, asynq.SkipRetry)
	}

	if payload.UserID == "" {
		return fmt.Errorf("missing userId: %w", asynq.SkipRetry)
	}

	var user model.User
	err := p.DB.WithContext(ctx).Where("id = ?", payload.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user not found: %w", asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch user record, %w", err)
	}

	zap.L().Info(fmt.Sprintf("Welcome %s!", user.Email), zap.String("user_id", user.ID))
	return nil
}
