package service

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bitwise74/files-api/model"

	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.User{}, model.File{}))

	return db
}

func writePNG(t *testing.T, p string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func thumbnailTask(t *testing.T, payload ThumbnailPayload) *asynq.Task {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)

	return asynq.NewTask(TypeThumbnail, b)
}

func seedImageFile(t *testing.T, db *gorm.DB, id, userID, p string) {
	t.Helper()

	require.NoError(t, db.Create(&model.File{
		ID:          id,
		UserID:      userID,
		Name:        "photo.png",
		Type:        model.TypeImage,
		ParentID:    model.RootParentID,
		StoragePath: p,
		CreatedAt:   time.Now().Unix(),
	}).Error)
}

func TestThumbnailMissingFields(t *testing.T) {
	p := &ThumbnailProcessor{DB: newTestDB(t)}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "missing fileId")

	err = p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{FileID: "f1"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "missing userId")
}

func TestThumbnailUnknownFile(t *testing.T) {
	p := &ThumbnailProcessor{DB: newTestDB(t)}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "nope"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "file not found")
}

func TestThumbnailOwnershipMismatch(t *testing.T) {
	db := newTestDB(t)
	src := filepath.Join(t.TempDir(), "x")
	writePNG(t, src, 1000, 1000)
	seedImageFile(t, db, "f1", "u1", src)

	p := &ThumbnailProcessor{DB: db}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u2", FileID: "f1"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "file not found")

	// Nothing may be written for a foreign-owned file
	for _, size := range RenditionSizes {
		assert.NoFileExists(t, RenditionPath(src, size))
	}
}

func TestThumbnailGeneratesRenditions(t *testing.T) {
	db := newTestDB(t)
	src := filepath.Join(t.TempDir(), "x")
	writePNG(t, src, 1000, 1000)
	seedImageFile(t, db, "f1", "u1", src)

	p := &ThumbnailProcessor{DB: db}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "f1"}))
	require.NoError(t, err)

	for _, size := range RenditionSizes {
		img, err := imaging.Open(RenditionPath(src, size))
		require.NoError(t, err, "rendition %d should be a valid image", size)

		bounds := img.Bounds()
		assert.Equal(t, size, bounds.Dx())
		assert.Equal(t, size, bounds.Dy())
	}
}

func TestThumbnailKeepsAspectRatio(t *testing.T) {
	db := newTestDB(t)
	src := filepath.Join(t.TempDir(), "wide")
	writePNG(t, src, 800, 400)
	seedImageFile(t, db, "f1", "u1", src)

	p := &ThumbnailProcessor{DB: db}

	require.NoError(t, p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "f1"})))

	img, err := imaging.Open(RenditionPath(src, 500))
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
	assert.Equal(t, 250, img.Bounds().Dy())
}

func TestThumbnailIdempotentOnRedelivery(t *testing.T) {
	db := newTestDB(t)
	src := filepath.Join(t.TempDir(), "x")
	writePNG(t, src, 1000, 1000)
	seedImageFile(t, db, "f1", "u1", src)

	p := &ThumbnailProcessor{DB: db}
	task := thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "f1"})

	require.NoError(t, p.ProcessTask(context.Background(), task))
	require.NoError(t, p.ProcessTask(context.Background(), task))

	for _, size := range RenditionSizes {
		img, err := imaging.Open(RenditionPath(src, size))
		require.NoError(t, err)
		assert.Equal(t, size, img.Bounds().Dx())
	}
}

func TestThumbnailCorruptSource(t *testing.T) {
	db := newTestDB(t)
	src := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(src, []byte("definitely not an image"), 0o644))
	seedImageFile(t, db, "f1", "u1", src)

	p := &ThumbnailProcessor{DB: db}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "f1"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	for _, size := range RenditionSizes {
		assert.NoFileExists(t, RenditionPath(src, size))
	}
}

func TestThumbnailMissingSourceIsRetryable(t *testing.T) {
	db := newTestDB(t)
	seedImageFile(t, db, "f1", "u1", filepath.Join(t.TempDir(), "missing"))

	p := &ThumbnailProcessor{DB: db}

	err := p.ProcessTask(context.Background(), thumbnailTask(t, ThumbnailPayload{UserID: "u1", FileID: "f1"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
