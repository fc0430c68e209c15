package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

// LocalStorage handles saving attachment files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
}

// NewLocalStorage creates a new LocalStorage instance rooted at basePath,
// creating the directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// storedNameFor builds a collision-resistant on-disk name: a second-level
// timestamp, a random 122-bit suffix, and the sanitized original filename.
// The random component alone guarantees uniqueness across concurrent
// uploads sharing a timestamp and original name.
func storedNameFor(originalFilename string) string {
	stamp := time.Now().Format("20060102150405")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return stamp + "_" + suffix + "_" + filepath.Base(originalFilename)
}

// SaveUpload saves an uploaded file under a freshly generated stored name.
func (ls *LocalStorage) SaveUpload(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil || fileHeader.Filename == "" {
		return "", nil // No file uploaded
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	storedName := storedNameFor(fileHeader.Filename)
	dstPath := filepath.Join(ls.basePath, storedName)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		// Remove the partially written file so no partial object is observable
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().
		Str("filename", fileHeader.Filename).
		Str("saved_as", storedName).
		Msg("Attachment saved")
	return storedName, nil
}

// DeleteFile removes a stored attachment from the filesystem.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) DeleteFile(storedName string) error {
	if storedName == "" {
		return nil // Nothing to delete
	}

	// Only the filename portion is ever honored
	filename := filepath.Base(storedName)
	if filename == "" || filename == "." || filename == "/" {
		return fmt.Errorf("invalid stored name: %s", storedName)
	}

	physicalPath := filepath.Join(ls.basePath, filename)

	if _, err := os.Stat(physicalPath); os.IsNotExist(err) {
		logger.Warn().Str("path", physicalPath).Msg("Attachment to delete does not exist")
		return nil // Idempotent delete
	}

	if err := os.Remove(physicalPath); err != nil {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete attachment")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("Attachment deleted")
	return nil
}

// GetFullPath returns the full filesystem path for a stored name.
func (ls *LocalStorage) GetFullPath(storedName string) string {
	filename := filepath.Base(storedName)
	if filename == "" || filename == "." || filename == "/" {
		return ""
	}

	return filepath.Join(ls.basePath, filename)
}
