// Package artifact names the files framegrab produces.
//
// Screenshots and recordings go to separate directories under one root:
//
//	<root>/screenshots/screenshot-region-20261019-140307.png
//	<root>/recordings/recording-fullscreen-20261019-140307.mkv
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/framegrab/internal/capture"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Kind selects the artifact directory and file prefix.
type Kind string

const (
	KindScreenshot Kind = "screenshot"
	KindRecording  Kind = "recording"
)

// ScreenshotExt is the extension of every screenshot.
const ScreenshotExt = "png"

const timestampLayout = "20060102-150405"

// maxCollisions bounds the numbered suffixes tried when a name is taken.
const maxCollisions = 100

// ResolveRoot returns the output root: configured when set, else
// $XDG_PICTURES_DIR/framegrab, else ~/Pictures/framegrab.
func ResolveRoot(configured string) string {
	if configured != "" {
		return configured
	}
	if pics := os.Getenv("XDG_PICTURES_DIR"); pics != "" {
		return filepath.Join(pics, "framegrab")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "framegrab")
	}
	return filepath.Join(home, "Pictures", "framegrab")
}

// Namer allocates timestamped output paths.
type Namer struct {
	root string
	now  func() time.Time
}

// NewNamer creates a Namer writing under root.
func NewNamer(root string) *Namer {
	return &Namer{root: root, now: time.Now}
}

// WithClock replaces the time source.
func (n *Namer) WithClock(now func() time.Time) *Namer {
	n.now = now
	return n
}

// Root returns the output root.
func (n *Namer) Root() string { return n.root }

// Dir returns the directory for kind.
func (n *Namer) Dir(kind Kind) string {
	return filepath.Join(n.root, string(kind)+"s")
}

// Path reserves a fresh path for an artifact of kind capturing target by
// creating an empty file there, so concurrent callers never get the same
// name. When the timestamped name is taken a numbered suffix is added. The
// caller owns the file and removes it if nothing is written.
func (n *Namer) Path(kind Kind, target capture.Target, ext string) (string, error) {
	if target == nil {
		return "", fgerrors.NewValidationError("artifact needs a capture target").WithField("target")
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", fgerrors.NewValidationError("artifact needs an extension").WithField("extension")
	}

	dir := n.Dir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	base := fmt.Sprintf("%s-%s-%s", kind, target.Slug(), n.now().Format(timestampLayout))
	for i := 0; i < maxCollisions; i++ {
		name := base + "." + ext
		if i > 0 {
			name = fmt.Sprintf("%s-%d.%s", base, i, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to reserve %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to reserve %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free %s name for %s in %s", kind, base, dir)
}
