package gen

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/syssam/loom/compiler/merge"
)

// Writer merges artifacts with their on-disk predecessors and writes them.
// Files are independent, so a Writer may be used from many goroutines.
type Writer struct {
	dir string
	log *zap.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: dir, log: log}
}

// Write merges a with the current content of its file and writes the
// result. It reports whether the file was created or changed.
func (w *Writer) Write(a *Artifact) (bool, error) {
	path := filepath.Join(w.dir, a.Path)
	prior, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, &FileError{Op: "read", Path: path, Cause: err}
	}
	res, err := merge.Merge(a.Source, prior, merge.Options{Syntax: a.Syntax, Path: path, Logger: w.log})
	if err != nil {
		return false, err
	}
	out := res.Output
	if a.Go {
		// Format using goimports (removes unused imports and adds missing ones).
		formatted, err := imports.Process(path, out, nil)
		if err != nil {
			w.log.Warn("merged output does not format; writing it as is",
				zap.String("path", path),
				zap.Error(err),
			)
		} else {
			out = formatted
		}
	}
	if prior != nil && bytes.Equal(out, prior) {
		w.log.Debug("file unchanged", zap.String("path", path))
		return false, nil
	}
	if err := writeFile(path, out); err != nil {
		return false, err
	}
	w.log.Debug("wrote file",
		zap.String("path", path),
		zap.Int("bytes", len(out)),
		zap.Int("stale", len(res.Warnings)),
	)
	return true, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &FileError{Op: "mkdir", Path: filepath.Dir(path), Cause: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &FileError{Op: "write", Path: path, Cause: err}
	}
	return nil
}
