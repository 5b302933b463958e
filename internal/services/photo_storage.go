package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PhotoStorage writes uploaded item photos to a static-served directory and
// hands back the relative URL path stored on the item record.
type PhotoStorage struct {
	Dir       string // filesystem directory, e.g. ./web/uploads
	URLPrefix string // public prefix, e.g. /uploads
}

func NewPhotoStorage() *PhotoStorage {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./web/uploads"
	}
	return &PhotoStorage{
		Dir:       dir,
		URLPrefix: "/uploads",
	}
}

// Save stores the uploaded file under a generated unique name so uploads with
// the same original filename never collide. Returns the relative URL path.
func (s *PhotoStorage) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("only image uploads are allowed, got %q", contentType)
	}
	if header.Size > 10*1024*1024 {
		return "", fmt.Errorf("photo exceeds the 10MB limit")
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("creating photo file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing photo file: %w", err)
	}

	return s.URLPrefix + "/" + name, nil
}

// Remove deletes a previously saved photo by its relative URL path. Used as
// compensating cleanup when the database write after an upload fails.
func (s *PhotoStorage) Remove(urlPath string) error {
	name := strings.TrimPrefix(urlPath, s.URLPrefix+"/")
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid photo path %q", urlPath)
	}
	return os.Remove(filepath.Join(s.Dir, name))
}
