// Package state persists the single in-progress recording session so that
// separate framegrab invocations can find and control it.
//
// The session lives in recording.json inside the state directory. Writers
// serialize on an flock held on recording.lock; the file itself is always
// replaced atomically, so readers never see a partial write and need no lock.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
)

const (
	// FileName is the session file within the state directory.
	FileName = "recording.json"
	// LockFileName guards check-then-write sequences on FileName.
	LockFileName = "recording.lock"
	// EnvDir overrides every other state directory setting.
	EnvDir = "FRAMEGRAB_STATE_DIR"
)

// ResolveDir picks the state directory: $FRAMEGRAB_STATE_DIR, then
// configured, then $XDG_STATE_HOME/framegrab, then ~/.local/state/framegrab.
func ResolveDir(configured string) string {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir
	}
	if configured != "" {
		return configured
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "framegrab")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "framegrab")
	}
	return filepath.Join(home, ".local", "state", "framegrab")
}

// Store reads and writes the session file.
type Store struct {
	dir    string
	logger *logging.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on first write.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the session file path.
func (s *Store) Path() string { return filepath.Join(s.dir, FileName) }

// Read returns the stored session, or nil when there is none.
// A file that cannot be read, parsed or validated yields errors.ErrStateCorrupt
// and is left untouched.
func (s *Store) Read() (*Session, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, s.corrupt("failed to read state file", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, s.corrupt("failed to parse state file", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, s.corrupt("invalid state file", err)
	}
	return &sess, nil
}

// Write stores sess. Without overwrite, an existing file (even a corrupt
// one) is never replaced and errors.ErrAlreadyRecording is returned.
func (s *Store) Write(sess *Session, overwrite bool) error {
	if sess == nil {
		return fgerrors.NewValidationError("cannot store a nil session")
	}
	if err := sess.Validate(); err != nil {
		return err
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if !overwrite {
		if _, err := os.Stat(s.Path()); err == nil {
			return fgerrors.NewStateError("session file exists", fgerrors.ErrAlreadyRecording).WithPath(s.Path())
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fgerrors.NewStateError("failed to check state file", err).WithPath(s.Path())
		}
	}

	if err := s.save(sess); err != nil {
		return err
	}
	s.logger.Debug("session stored", "session_id", sess.ID, "pid", sess.PID, "path", s.Path())
	return nil
}

// Update applies fn to the stored session and saves the result under the
// store lock. It returns errors.ErrNotRecording when there is no session.
// When fn returns an error nothing is written.
func (s *Store) Update(fn func(*Session) error) (*Session, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.Read()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fgerrors.ErrNotRecording
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Clear removes the session file. Removing a missing file is not an error.
func (s *Store) Clear() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fgerrors.NewStateError("failed to remove state file", err).WithPath(s.Path())
	}
	s.logger.Debug("session cleared", "path", s.Path())
	return nil
}

func (s *Store) save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fgerrors.NewStateError("failed to encode session", err).WithPath(s.Path())
	}
	data = append(data, '\n')
	if err := atomicWriteFile(s.Path(), data, 0o600); err != nil {
		return fgerrors.NewStateError("failed to write state file", err).WithPath(s.Path())
	}
	return nil
}

// lock takes an exclusive flock on the lock file, blocking until it is free.
func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fgerrors.NewStateError("failed to create state directory", err).WithPath(s.dir)
	}

	path := filepath.Join(s.dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fgerrors.NewStateError("failed to open lock file", err).WithPath(path)
	}

	fd := int(f.Fd())
	for {
		err = unix.Flock(fd, unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fgerrors.NewStateError("failed to lock state", err).WithPath(path)
	}

	return func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

func (s *Store) corrupt(message string, cause error) error {
	return fgerrors.NewStateError(message, fmt.Errorf("%w: %w", fgerrors.ErrStateCorrupt, cause)).WithPath(s.Path())
}

// atomicWriteFile writes data to a temp file in the same directory, syncs
// it and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
