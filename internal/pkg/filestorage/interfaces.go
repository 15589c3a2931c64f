package filestorage

import (
	"mime/multipart"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores the upload under a subdirectory and returns its
	// path relative to the storage root
	SaveFileWithPath(fileHeader *multipart.FileHeader, path string) (string, error)

	// DeleteFile removes a file by the relative path SaveFileWithPath returned
	DeleteFile(filePath string) error

	// GetFullPath returns the filesystem path for a relative path
	GetFullPath(filePath string) string
}
