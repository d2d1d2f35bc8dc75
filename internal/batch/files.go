package batch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Suffixes appended to a stamp's base name for derived files. Files carrying
// them are never discovered as stamps.
const (
	PreviewSuffix = "-preview"
	DetectSuffix  = "-detect"
)

// Target is one stamp file selected for processing.
type Target struct {
	Name string
	Path string
	// Missing is set when an explicitly named file does not exist.
	Missing bool
}

// Discover lists the stamps to process in dir.
//
// With names, exactly those files are returned in order, and the ones that do
// not exist are marked Missing. Without names, every *.png in dir is returned
// in lexical order, excluding derived preview and detect outputs.
func Discover(dir string, names []string) ([]Target, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open stamp directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("stamp directory %s is not a directory", dir)
	}

	if len(names) > 0 {
		targets := make([]Target, 0, len(names))
		for _, name := range names {
			path := filepath.Join(dir, name)
			t := Target{Name: name, Path: path}
			if _, err := os.Stat(path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return nil, fmt.Errorf("failed to stat %s: %w", name, err)
				}
				t.Missing = true
			}
			targets = append(targets, t)
		}
		return targets, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stamp directory: %w", err)
	}
	var targets []Target
	for _, e := range entries {
		if e.IsDir() || !isStamp(e.Name()) {
			continue
		}
		targets = append(targets, Target{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	return targets, nil
}

func isStamp(name string) bool {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".png") {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	return !strings.HasSuffix(stem, PreviewSuffix) && !strings.HasSuffix(stem, DetectSuffix)
}

// DerivedPath returns the path of a file derived from a stamp:
// DerivedPath("a/b.png", PreviewSuffix) is "a/b-preview.png".
func DerivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ".png"
}

// Backup copies src into backupDir unless a file of the same name is already
// there. It reports whether a copy was made. The first backup of a file is
// never overwritten, so it always holds the original.
func Backup(src, backupDir string) (bool, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create backup directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open original: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(backupDir, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create backup: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return false, fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return false, fmt.Errorf("failed to write backup: %w", err)
	}
	return true, nil
}
