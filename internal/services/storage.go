package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/resumeiq/internal/models"
)

// StorageService keeps generated export files on local disk.
type StorageService interface {
	EnsureExportDir() error
	SaveFile(prefix, ext string, data []byte) (string, int64, error)
	GetFilePath(filename string) (string, error)
	DeleteFile(filename string) error
}

type storageService struct {
	exportPath string
}

func NewStorageService(exportPath string) StorageService {
	return &storageService{
		exportPath: exportPath,
	}
}

func (s *storageService) EnsureExportDir() error {
	if err := os.MkdirAll(s.exportPath, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	return nil
}

// SaveFile writes data under a unique name like "cover-letter_<uuid>.pdf".
func (s *storageService) SaveFile(prefix, ext string, data []byte) (string, int64, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "pdf", "docx", "xlsx":
	default:
		return "", 0, fmt.Errorf("invalid export extension: %s", ext)
	}

	if err := s.EnsureExportDir(); err != nil {
		return "", 0, err
	}

	uniqueFilename := fmt.Sprintf("%s_%s.%s", prefix, uuid.New().String(), ext)
	filePath := filepath.Join(s.exportPath, uniqueFilename)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, int64(len(data)), nil
}

// GetFilePath resolves a stored file name. Names that try to leave the export
// directory, or that do not exist, report models.ErrNotFound.
func (s *storageService) GetFilePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("export %q: %w", filename, models.ErrNotFound)
	}

	filePath := filepath.Join(s.exportPath, filename)
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("export %q: %w", filename, models.ErrNotFound)
	}
	return filePath, nil
}

func (s *storageService) DeleteFile(filename string) error {
	filePath, err := s.GetFilePath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
