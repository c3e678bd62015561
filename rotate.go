package hiviz

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// rotatingFile appends lines to one log path and rotates it into numbered
// backups (path.1 newest, path.N oldest). It is owned by a single goroutine
// and does no locking of its own.
type rotatingFile struct {
	path string
	file *os.File
	size int64
}

func newRotatingFile(path string) *rotatingFile {
	return &rotatingFile{path: path}
}

// backupName returns the name of the k-th backup of path.
func backupName(path string, k int) string {
	return path + "." + strconv.Itoa(k)
}

// open opens the log file in append mode, creating it and its directory if needed.
func (r *rotatingFile) open() error {
	if dir := filepath.Dir(r.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// write appends line, opening the file on first use. When the file grows
// past maxBytes it is rotated; rotated reports whether that happened.
func (r *rotatingFile) write(line []byte, maxBytes int64, backupCount int) (rotated bool, err error) {
	if r.file == nil {
		if err := r.open(); err != nil {
			return false, err
		}
	}

	n, err := r.file.Write(line)
	r.size += int64(n)
	if err != nil {
		// drop the handle so the next write reopens the file
		r.file.Close()
		r.file = nil
		return false, fmt.Errorf("failed to write log file: %w", err)
	}

	if maxBytes > 0 && r.size > maxBytes {
		if err := r.rotate(backupCount); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// rotate closes the active file, shifts the backups up by one discarding the
// oldest, moves the active file to path.1 and opens a fresh file. Without
// backups the active file is truncated instead.
func (r *rotatingFile) rotate(backupCount int) error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			r.file = nil
			return fmt.Errorf("failed to close log file: %w", err)
		}
		r.file = nil
	}
	r.size = 0

	if backupCount <= 0 {
		file, err := os.OpenFile(r.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to truncate log file: %w", err)
		}
		r.file = file
		return nil
	}

	for k := backupCount - 1; k >= 1; k-- {
		if err := replaceFile(backupName(r.path, k), backupName(r.path, k+1)); err != nil {
			return err
		}
	}
	if err := replaceFile(r.path, backupName(r.path, 1)); err != nil {
		return err
	}
	return r.open()
}

// replaceFile renames src over dst. A missing src is not an error.
func replaceFile(src, dst string) error {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove old backup: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

func (r *rotatingFile) sync() error {
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *rotatingFile) close() error {
	if r.file == nil {
		return nil
	}
	syncErr := r.file.Sync()
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync log file: %w", syncErr)
	}
	return nil
}
