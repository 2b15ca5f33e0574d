// Package media stores uploaded book thumbnails on the local filesystem.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
)

// ThumbnailDir is the subdirectory of the media root holding thumbnails.
const ThumbnailDir = "thumbnails"

const invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// Storage writes processed thumbnails below a media root.
type Storage struct {
	root     string
	maxBytes int64
}

// NewStorage creates the thumbnail directory below root if needed.
func NewStorage(root string, maxBytes int64) (*Storage, error) {
	if root == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, ThumbnailDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", ThumbnailDir, err)
	}
	return &Storage{root: root, maxBytes: maxBytes}, nil
}

// Save validates and processes an upload and writes it as
// thumbnails/<uuid>.jpg. It returns the path relative to the media root and
// the BlurHash of the image. Rejected uploads are validation errors on the
// "thumbnail" field.
func (s *Storage) Save(ctx context.Context, data []byte) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", apperrors.FieldError("thumbnail", "The submitted file is empty.")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", "", apperrors.FieldError("thumbnail",
			fmt.Sprintf("Ensure this file is at most %d bytes (it is %d bytes).", s.maxBytes, len(data)))
	}

	processed, err := Process(data)
	if err != nil {
		logger.Log.WithError(err).Debug("Rejected thumbnail upload")
		return "", "", apperrors.FieldError("thumbnail", invalidImageMessage)
	}

	rel := filepath.ToSlash(filepath.Join(ThumbnailDir, uuid.NewString()+".jpg"))
	full := s.Path(rel)

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(processed.JPEG); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("failed to close thumbnail: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to chmod thumbnail: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", "", fmt.Errorf("failed to store thumbnail: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"path":   rel,
		"width":  processed.Width,
		"height": processed.Height,
	}).Debug("Stored thumbnail")
	return rel, processed.BlurHash, nil
}

// Delete removes a stored thumbnail. Missing files are not an error.
func (s *Storage) Delete(rel string) error {
	if !validRelPath(rel) {
		return fmt.Errorf("refusing to delete %q outside %s", rel, ThumbnailDir)
	}
	if err := os.Remove(s.Path(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

// Path returns the filesystem path of a stored file.
func (s *Storage) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func validRelPath(rel string) bool {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	return clean == rel && strings.HasPrefix(clean, ThumbnailDir+"/") && !strings.Contains(clean, "..")
}
