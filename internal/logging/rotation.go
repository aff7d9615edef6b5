package logging

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RotationConfig bounds framegrab.log.
type RotationConfig struct {
	// MaxSizeMB is the size at which the log is rotated. Zero disables rotation.
	MaxSizeMB int
	// MaxBackups is how many rotated logs are kept, framegrab.log.1 being
	// the newest. With zero the rotated content is dropped.
	MaxBackups int
	// Compress gzips rotated logs.
	Compress bool
}

// DefaultRotationConfig returns the limits used when nothing is configured.
// An invocation appends a handful of lines, so they are small.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxSizeMB: 2, MaxBackups: 2}
}

var errLogClosed = errors.New("log file is closed")

// logFile appends to framegrab.log and rotates it by size.
// It is safe for concurrent use.
type logFile struct {
	mu sync.Mutex

	path     string
	limit    int64
	backups  int
	compress bool

	f    *os.File
	size int64
}

// openLogFile opens path for appending, creating it and its directory.
func openLogFile(path string, cfg RotationConfig) (*logFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	lf := &logFile{
		path:     path,
		limit:    int64(cfg.MaxSizeMB) << 20,
		backups:  max(cfg.MaxBackups, 0),
		compress: cfg.Compress,
	}
	if err := lf.open(); err != nil {
		return nil, err
	}
	return lf, nil
}

func (lf *logFile) open() error {
	f, err := os.OpenFile(lf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	lf.f, lf.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would take the file past the limit.
// A single entry larger than the limit still goes into a fresh file.
func (lf *logFile) Write(p []byte) (int, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.f == nil {
		return 0, errLogClosed
	}
	if lf.limit > 0 && lf.size > 0 && lf.size+int64(len(p)) > lf.limit {
		if err := lf.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
		}
		if lf.f == nil {
			return 0, errLogClosed
		}
	}

	n, err := lf.f.Write(p)
	lf.size += int64(n)
	return n, err
}

// rotate shifts framegrab.log to .1 and each backup up by one, dropping the
// one past the limit, then reopens an empty log. The caller holds mu.
//
// Compression runs inline: the process usually exits right after logging.
func (lf *logFile) rotate() error {
	if err := lf.f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	lf.f = nil

	oldest := lf.backup(lf.backups)
	_ = os.Remove(oldest)
	_ = os.Remove(oldest + ".gz")

	var shiftErr error
	for i := lf.backups - 1; i >= 0; i-- {
		from, to := lf.backup(i), lf.backup(i+1)
		_ = os.Rename(from+".gz", to+".gz")
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) && shiftErr == nil {
			shiftErr = fmt.Errorf("failed to rename %s: %w", from, err)
		}
	}

	if lf.compress && lf.backups > 0 && shiftErr == nil {
		if err := gzipFile(lf.backup(1)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to compress rotated log: %v\n", err)
		}
	}

	return errors.Join(shiftErr, lf.open())
}

// backup returns the name of the nth rotated log; 0 is the live log.
func (lf *logFile) backup(n int) string {
	if n == 0 {
		return lf.path
	}
	return lf.path + "." + strconv.Itoa(n)
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst.Name())
			return
		}
		err = os.Remove(path)
	}()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		return err
	}
	return gz.Close()
}

// Close closes the file. Later writes fail; closing again is a no-op.
func (lf *logFile) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.f == nil {
		return nil
	}
	err := lf.f.Close()
	lf.f = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
