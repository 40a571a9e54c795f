// Package service contains stuff related to the background processing
// of the application
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Task type names, one handler each
const (
	TypeThumbnail = "thumbnail:generate"
	TypeWelcome   = "user:welcome"
)

// Jobs about files and jobs about users go to separate queues, like
// the two queues they replace. Weights only matter under load
const (
	queueFiles = "files"
	queueUsers = "users"
)

type ThumbnailPayload struct {
	UserID string `json:"userId"`
	FileID string `json:"fileId"`
}

type WelcomePayload struct {
	UserID string `json:"userId"`
}

// Queue is the producer half of the job pipeline. It never blocks on
// job completion, enqueueing is fire-and-forget
type Queue struct {
	client *asynq.Client
}

func NewQueue(rdb redis.UniversalClient) *Queue {
	return &Queue{client: asynq.NewClientFromRedisClient(rdb)}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueThumbnail schedules rendition generation for an image file.
// Callers must only do this after the file record exists and its bytes
// are flushed to disk, a worker may pick the job up immediately
func (q *Queue) EnqueueThumbnail(ctx context.Context, userID, fileID string) error {
	b, err := json.Marshal(ThumbnailPayload{UserID: userID, FileID: fileID})
	if err != nil {
		return fmt.Errorf("failed to marshal thumbnail payload, %w", err)
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeThumbnail, b),
		asynq.Queue(queueFiles),
		asynq.MaxRetry(viper.GetInt("queue.thumbnail_max_retry")),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue thumbnail job, %w", err)
	}

	zap.L().Debug("Thumbnail job enqueued",
		zap.String("task_id", info.ID),
		zap.String("file_id", fileID))
	return nil
}

func (q *Queue) EnqueueWelcome(ctx context.Context, userID string) error {
	b, err := json.Marshal(WelcomePayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("failed to marshal welcome payload, %w", err)
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeWelcome, b),
		asynq.Queue(queueUsers),
		asynq.MaxRetry(viper.GetInt("queue.welcome_max_retry")),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue welcome job, %w", err)
	}

	zap.L().Debug("Welcome job enqueued",
		zap.String("task_id", info.ID),
		zap.String("user_id", userID))
	return nil
}

// Worker is the consumer half. Delivery is at-least-once, handlers
// must tolerate redelivery of a job they already started
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(rdb redis.UniversalClient, db *gorm.DB) *Worker {
	srv := asynq.NewServerFromRedisClient(rdb, asynq.Config{
		Concurrency: viper.GetInt("queue.concurrency"),
		Queues: map[string]int{
			queueFiles: 2,
			queueUsers: 1,
		},
		Logger: zap.L().Sugar(),
		// Every failed attempt leaves a trace. Asynq owns the
		// retry/archive bookkeeping, handlers only return errors
		ErrorHandler: asynq.ErrorHandlerFunc(logTaskError),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeThumbnail, &ThumbnailProcessor{DB: db})
	mux.Handle(TypeWelcome, &WelcomeProcessor{DB: db})

	return &Worker{srv: srv, mux: mux}
}

func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func logTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	zap.L().Error("Task failed",
		zap.String("type", task.Type()),
		zap.ByteString("payload", task.Payload()),
		zap.Int("retried", retried),
		zap.Int("max_retry", maxRetry),
		zap.Error(err))
}
