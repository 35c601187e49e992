// Package artifact stores job outputs on the local filesystem.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Read when the artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// ErrOutsideRoot is returned by Read for paths outside the managed directories.
var ErrOutsideRoot = errors.New("artifact path outside output directories")

// LocalStorage writes transcripts and blog posts under two directories.
type LocalStorage struct {
	OutputDir      string
	TranscriptsDir string

	now func() time.Time
}

// NewLocalStorage creates a LocalStorage. Directories are created on first
// write.
func NewLocalStorage(outputDir, transcriptsDir string) *LocalStorage {
	return &LocalStorage{
		OutputDir:      outputDir,
		TranscriptsDir: transcriptsDir,
		now:            time.Now,
	}
}

// SaveTranscript writes the raw transcript of a job to
// <transcripts>/<job>_transcript.txt and returns the path.
func (s *LocalStorage) SaveTranscript(ctx context.Context, jobID uuid.UUID, text string) (string, error) {
	path := filepath.Join(s.TranscriptsDir, jobID.String()+"_transcript.txt")
	if err := s.write(ctx, path, text); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}
	return path, nil
}

// Save writes the blog post of a job to <output>/<job>_<YYYYMMDD_HHMMSS>.md
// and returns the path.
func (s *LocalStorage) Save(ctx context.Context, jobID uuid.UUID, content string) (string, error) {
	name := fmt.Sprintf("%s_%s.md", jobID, s.now().Format("20060102_150405"))
	path := filepath.Join(s.OutputDir, name)
	if err := s.write(ctx, path, content); err != nil {
		return "", fmt.Errorf("failed to save blog post: %w", err)
	}
	return path, nil
}

// Read returns the content of an artifact previously written by s.
func (s *LocalStorage) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.owns(path) {
		return "", ErrOutsideRoot
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

// Remove deletes an artifact. Missing files are not an error.
func (s *LocalStorage) Remove(path string) error {
	if !s.owns(path) {
		return ErrOutsideRoot
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}

func (s *LocalStorage) write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Write to a temporary file first so readers never see a partial post.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// owns reports whether path lies inside one of the managed directories.
func (s *LocalStorage) owns(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range []string{s.OutputDir, s.TranscriptsDir} {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "." {
			return true
		}
	}
	return false
}
