package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bitwise74/files-api/model"
	"bitwise74/files-api/util"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrParentNotFound  = errors.New("parent not found")
	ErrParentNotFolder = errors.New("parent is not a folder")
)

// Enqueuer is the producer side of the job queue the way the uploader
// needs it
type Enqueuer interface {
	EnqueueThumbnail(ctx context.Context, userID, fileID string) error
}

// Uploader persists a new file: bytes to the local storage folder,
// metadata to the database, and for images a thumbnail job on the
// queue. Strictly in that order, a worker may pick the job up the
// moment it's enqueued
type Uploader struct {
	DB    *gorm.DB
	Queue Enqueuer
}

func NewUploader(db *gorm.DB, q Enqueuer) *Uploader {
	return &Uploader{DB: db, Queue: q}
}

// UploadRequest is a validated upload. Data holds the decoded bytes
// and stays nil for folders
type UploadRequest struct {
	Name     string
	Type     string
	ParentID string
	IsPublic bool
	Data     []byte
}

func (u *Uploader) Do(ctx context.Context, userID string, req *UploadRequest) (*model.File, error) {
	if req.ParentID != model.RootParentID {
		var parent model.File

		err := u.DB.WithContext(ctx).Where("id = ?", req.ParentID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParentNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch parent record, %w", err)
		}

		if parent.Type != model.TypeFolder {
			return nil, ErrParentNotFolder
		}
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate file ID, %w", err)
	}

	file := &model.File{
		ID:        id,
		UserID:    userID,
		Name:      req.Name,
		Type:      req.Type,
		ParentID:  req.ParentID,
		IsPublic:  req.IsPublic,
		Size:      int64(len(req.Data)),
		CreatedAt: time.Now().Unix(),
	}

	if req.Type != model.TypeFolder {
		p, err := writeBytes(req.Data)
		if err != nil {
			return nil, err
		}

		file.StoragePath = p
	}

	if err := u.DB.WithContext(ctx).Create(file).Error; err != nil {
		if file.StoragePath != "" {
			os.Remove(file.StoragePath)
		}
		return nil, fmt.Errorf("failed to create file record, %w", err)
	}

	// Record and bytes are durable at this point. If the enqueue
	// fails the upload still succeeded, renditions will just be
	// absent until the file is re-uploaded
	if req.Type == model.TypeImage {
		if err := u.Queue.EnqueueThumbnail(ctx, userID, file.ID); err != nil {
			zap.L().Error("Failed to enqueue thumbnail job",
				zap.String("file_id", file.ID),
				zap.Error(err))
		}
	}

	return file, nil
}

// writeBytes stores the upload under a random name in the storage
// folder and syncs it before returning, the path ends up in a durable
// record referenced by a concurrent worker
func writeBytes(data []byte) (string, error) {
	folder := viper.GetString("storage.folder_path")

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage folder, %w", err)
	}

	p := filepath.Join(folder, util.RandStr(20))

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create storage file, %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to write storage file, %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to sync storage file, %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("failed to close storage file, %w", err)
	}

	return p, nil
}
