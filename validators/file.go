package validators

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"bitwise74/files-api/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrNoName         = errors.New("missing name")
	ErrNameTooLong    = errors.New("file name is too long")
	ErrInvalidType    = errors.New("missing type")
	ErrNoData         = errors.New("missing data")
	ErrDataTooLarge   = errors.New("file too large")
	ErrNotAnImage     = errors.New("file is not an image")
	ErrFolderWithData = errors.New("a folder can't have data")
)

var validTypes = []string{model.TypeFolder, model.TypeFile, model.TypeImage}

const maxFileNameSize = 255

// UploadValidator checks a decoded upload request before anything gets
// persisted. Returns the HTTP status to respond with alongside the error
func UploadValidator(name, fileType string, data []byte) (int, error) {
	if name == "" {
		return http.StatusBadRequest, ErrNoName
	}

	if len(name) > maxFileNameSize {
		return http.StatusBadRequest, ErrNameTooLong
	}

	if !slices.Contains(validTypes, fileType) {
		return http.StatusBadRequest, ErrInvalidType
	}

	if fileType == model.TypeFolder {
		if len(data) != 0 {
			return http.StatusBadRequest, ErrFolderWithData
		}
		return 0, nil
	}

	if len(data) == 0 {
		return http.StatusBadRequest, ErrNoData
	}

	if int64(len(data)) > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, ErrDataTooLarge
	}

	// Headers are easy to spoof so image claims get checked against
	// the actual bytes
	if fileType == model.TypeImage {
		mime := mimetype.Detect(data)
		if !strings.HasPrefix(mime.String(), "image/") {
			return http.StatusBadRequest, ErrNotAnImage
		}
	}

	return 0, nil
}
