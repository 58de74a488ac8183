package handoff

import (
	"fmt"
	"os"
	"path/filepath"

	"robovision/internal/models"
)

// FileSink overwrites a fixed path with the "[x, y, z]" text of the latest
// coordinates. The write goes through a temp file and rename, so readers see
// either the old or the new triple.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Publish(result *models.QueryResult) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("handoff file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(result.Coordinates.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("handoff file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("handoff file: %w", err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("handoff file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("handoff file: %w", err)
	}

	return nil
}

func (s *FileSink) Close() error { return nil }
