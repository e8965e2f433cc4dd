package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/diogo/chatai/internal/models"
)

// MaxAttachmentSize is the largest file accepted as an attachment
const MaxAttachmentSize = 20 * 1024 * 1024 // 20MB

// LoadAttachment reads a file from disk and detects its MIME type from
// its content.
func LoadAttachment(filePath string) (models.Attachment, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if fileInfo.IsDir() {
		return models.Attachment{}, fmt.Errorf("%s is a directory", filePath)
	}
	if fileInfo.Size() > MaxAttachmentSize {
		return models.Attachment{}, fmt.Errorf("file size exceeds maximum %d bytes", MaxAttachmentSize)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return AttachmentFromReader(file, filepath.Base(filePath))
}

// AttachmentFromReader builds an attachment from r, enforcing the same size
// limit as LoadAttachment.
func AttachmentFromReader(r io.Reader, name string) (models.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to read data: %w", err)
	}
	if len(data) > MaxAttachmentSize {
		return models.Attachment{}, fmt.Errorf("data size exceeds maximum %d bytes", MaxAttachmentSize)
	}

	return models.Attachment{
		Name:     name,
		MIMEType: mimetype.Detect(data).String(),
		Data:     data,
	}, nil
}
