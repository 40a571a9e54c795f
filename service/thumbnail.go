package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"bitwise74/files-api/model"

	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// RenditionSizes are the widths generated for every image upload,
// largest first so the most useful one exists if a job gets cut short
var RenditionSizes = []int{500, 250, 100}

// RenditionPath is where the worker writes the resized copy for a
// given width. Readers probe this path to tell whether a rendition
// exists yet, there is no ready flag on the file record
func RenditionPath(storagePath string, size int) string {
	return fmt.Sprintf("%s_%d", storagePath, size)
}

// ThumbnailProcessor consumes thumbnail jobs. For each one it loads
// the file record, checks ownership and writes one rendition per
// configured size next to the original.
//
// Validation and ownership failures wrap asynq.SkipRetry because
// retrying can't fix them, they go straight to the archive for
// operator inspection. I/O errors stay retryable
type ThumbnailProcessor struct {
	DB *gorm.DB
}

func (p *ThumbnailProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid thumbnail payload, %v: %w", err, asynq.SkipRetry)
	}

	// Field checks come before any lookup or file I/O
	if payload.FileID == "" {
		return fmt.Errorf("missing fileId: %w", asynq.SkipRetry)
	}
	if payload.UserID == "" {
		return fmt.Errorf("missing userId: %w", asynq.SkipRetry)
	}

	var file model.File
	err := p.DB.WithContext(ctx).Where("id = ?", payload.FileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("file not found: %w", asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch file record, %w", err)
	}

	// A job must never render another user's file. Absent and
	// foreign-owned look the same on purpose
	if file.UserID != payload.UserID {
		return fmt.Errorf("file not found: %w", asynq.SkipRetry)
	}

	start := time.Now()

	src, format, err := decodeSource(file.StoragePath)
	if err != nil {
		return err
	}

	// Sequential on purpose: bounds memory per job and when a size
	// fails we know exactly which one. Redelivery regenerates all
	// sizes fresh, overwriting partial output is fine
	for _, size := range RenditionSizes {
		resized := imaging.Resize(src, size, 0, imaging.Lanczos)

		if err := writeRendition(RenditionPath(file.StoragePath, size), resized, format); err != nil {
			return fmt.Errorf("failed to write %d rendition, %w", size, err)
		}
	}

	zap.L().Info("Renditions generated",
		zap.String("file_id", file.ID),
		zap.String("path", file.StoragePath),
		zap.Duration("took", time.Since(start)))
	return nil
}

func decodeSource(p string) (image.Image, imaging.Format, error) {
	f, err := os.Open(p)
	if err != nil {
		// Possibly a replication race with the upload, worth a retry
		return nil, 0, fmt.Errorf("failed to open source image, %w", err)
	}
	defer f.Close()

	src, formatName, err := image.Decode(f)
	if err != nil {
		// Corrupt or unsupported source won't get better on redelivery
		return nil, 0, fmt.Errorf("failed to decode source image, %v: %w", err, asynq.SkipRetry)
	}

	format, err := imaging.FormatFromExtension(formatName)
	if err != nil {
		return nil, 0, fmt.Errorf("unsupported image format %q: %w", formatName, asynq.SkipRetry)
	}

	return src, format, nil
}

// writeRendition writes through a temp file and renames so concurrent
// redeliveries of the same job can't leave a half-written rendition
func writeRendition(dest string, img image.Image, format imaging.Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".rendition-*")
	if err != nil {
		return err
	}

	if err := imaging.Encode(tmp, img, format); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), dest)
}
