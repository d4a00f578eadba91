package transform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmelo/outfit-studio/internal/logger"
)

// Gallery is where saved result images end up.
type Gallery interface {
	// Writable checks access before a submission is attempted.
	Writable() error
	// Save places image bytes into the gallery and returns the final path.
	Save(filename string, data []byte) (string, error)
}

// DirGallery saves images into a local directory.
type DirGallery struct {
	Dir string
}

// NewDirGallery creates a gallery rooted at dir.
func NewDirGallery(dir string) *DirGallery {
	return &DirGallery{Dir: dir}
}

// Writable creates the directory and probes it with a scratch file.
func (g *DirGallery) Writable() error {
	if err := os.MkdirAll(g.Dir, 0o750); err != nil {
		return &PermissionError{Path: g.Dir, Err: err}
	}

	probe, err := os.CreateTemp(g.Dir, ".probe-*")
	if err != nil {
		return &PermissionError{Path: g.Dir, Err: err}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// Save writes to a temporary file first and moves it into place, so the
// gallery never holds a partially written image.
func (g *DirGallery) Save(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(g.Dir, 0o750); err != nil {
		return "", &PermissionError{Path: g.Dir, Err: err}
	}

	tmp, err := os.CreateTemp("", "outfit-studio-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := filepath.Join(g.Dir, filename)
	if err := os.Rename(tmpName, dest); err != nil {
		// Rename fails across filesystems; copy instead.
		if copyErr := copyFile(tmpName, dest); copyErr != nil {
			return "", fmt.Errorf("failed to place image in gallery: %w", copyErr)
		}
	}

	logger.Info("saved image", "path", dest)
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
