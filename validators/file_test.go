package validators

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"bitwise74/files-api/model"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestUploadValidator(t *testing.T) {
	viper.Set("upload.max_size", int64(1<<20))

	tests := []struct {
		name     string
		fileName string
		fileType string
		data     []byte
		wantCode int
		wantErr  error
	}{
		{"missing name", "", model.TypeFile, []byte("x"), http.StatusBadRequest, ErrNoName},
		{"name too long", strings.Repeat("a", 300), model.TypeFile, []byte("x"), http.StatusBadRequest, ErrNameTooLong},
		{"bad type", "a.txt", "archive", []byte("x"), http.StatusBadRequest, ErrInvalidType},
		{"file without data", "a.txt", model.TypeFile, nil, http.StatusBadRequest, ErrNoData},
		{"folder with data", "docs", model.TypeFolder, []byte("x"), http.StatusBadRequest, ErrFolderWithData},
		{"image that isn't one", "a.png", model.TypeImage, []byte("plain text"), http.StatusBadRequest, ErrNotAnImage},
		{"valid folder", "docs", model.TypeFolder, nil, 0, nil},
		{"valid file", "a.txt", model.TypeFile, []byte("x"), 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := UploadValidator(tt.fileName, tt.fileType, tt.data)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUploadValidatorRealImage(t *testing.T) {
	viper.Set("upload.max_size", int64(1<<20))

	code, err := UploadValidator("photo.png", model.TypeImage, pngBytes(t))
	assert.Zero(t, code)
	assert.NoError(t, err)
}

func TestUploadValidatorTooLarge(t *testing.T) {
	viper.Set("upload.max_size", int64(4))

	code, err := UploadValidator("a.txt", model.TypeFile, []byte("way too big"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.ErrorIs(t, err, ErrDataTooLarge)
}
