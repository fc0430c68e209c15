package filestorage

import "mime/multipart"

// FileStorage defines the interface for attachment storage operations.
type FileStorage interface {
	// SaveUpload persists an uploaded file under a unique stored name and
	// returns that name. An upload with an empty original filename is
	// treated as "no file" and returns ("", nil).
	SaveUpload(fileHeader *multipart.FileHeader) (string, error)

	// DeleteFile removes a stored file. Deleting a missing file is not an
	// error.
	DeleteFile(storedName string) error

	// GetFullPath returns the full filesystem path for a stored name.
	GetFullPath(storedName string) string
}
