package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxFileSize is 5MB in bytes
	MaxFileSize = 5 * 1024 * 1024
)

// AllowedImageTypes are the MIME types accepted for design uploads, detected
// from file content rather than the client's header or extension
var AllowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidatedFile is an upload that passed validation, held in memory
type ValidatedFile struct {
	Filename    string
	ContentType string
	Extension   string
	Content     []byte
}

func (f *ValidatedFile) Size() int64 {
	return int64(len(f.Content))
}

// FileTooLarge is the error for uploads over MaxFileSize
func FileTooLarge() error {
	return &FileUploadError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
	}
}

// ValidateImageFile checks size and sniffed content type and returns the file
// contents. The declared size is checked first so oversized uploads are
// never read.
func ValidateImageFile(fileHeader *multipart.FileHeader) (*ValidatedFile, error) {
	if fileHeader.Size > MaxFileSize {
		return nil, FileTooLarge()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// read one byte past the limit to catch a lying header
	content, err := io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(content) > MaxFileSize {
		return nil, FileTooLarge()
	}
	if len(content) == 0 {
		return nil, &FileUploadError{Code: "EMPTY_FILE", Message: "Uploaded file is empty"}
	}

	mtype := mimetype.Detect(content)
	if !mimetype.EqualsAny(mtype.String(), AllowedImageTypes...) {
		return nil, &FileUploadError{
			Code:    "INVALID_FILE_TYPE",
			Message: "Only PNG, JPEG, GIF and WebP images are allowed",
		}
	}

	return &ValidatedFile{
		Filename:    filepath.Base(fileHeader.Filename),
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
		Content:     content,
	}, nil
}

// ObjectKey builds the storage key for a design upload:
// design-requests/{request id or "unassigned"}/{unix nanos}_{clean name}{ext}
func ObjectKey(requestID, filename, ext string, now time.Time) string {
	if requestID == "" {
		requestID = "unassigned"
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "design"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return fmt.Sprintf("design-requests/%s/%d_%s%s", requestID, now.UnixNano(), base, ext)
}

// PublicURL joins the storage public base URL and an object key
func PublicURL(baseURL, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}
