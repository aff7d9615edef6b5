package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// WindowInfo describes one compositor window.
type WindowInfo struct {
	ID          uint64 `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	AppID       string `json:"app_id" yaml:"app_id"`
	WorkspaceID uint64 `json:"workspace_id" yaml:"workspace_id"`
	IsFocused   bool   `json:"is_focused" yaml:"is_focused"`
}

// ListWindows returns the compositor's windows, focused first, then by
// workspace and title.
func (r *Resolver) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	res, err := r.query.Run(ctx, r.tools.Compositor, "msg", "--json", "windows")
	if err != nil {
		return nil, fgerrors.NewCaptureError("failed to list windows", err).
			WithMode(string(ModeWindow)).
			WithTool(r.tools.Compositor)
	}

	windows, err := parseWindows(res.Stdout)
	if err != nil {
		return nil, fgerrors.NewCaptureError("failed to list windows", err).
			WithMode(string(ModeWindow)).
			WithTool(r.tools.Compositor)
	}
	return windows, nil
}

func parseWindows(data []byte) ([]WindowInfo, error) {
	var raw []struct {
		ID          *uint64 `json:"id"`
		Title       *string `json:"title"`
		AppID       *string `json:"app_id"`
		WorkspaceID *uint64 `json:"workspace_id"`
		IsFocused   bool    `json:"is_focused"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("invalid windows reply: %w", err)
	}

	windows := make([]WindowInfo, 0, len(raw))
	for _, item := range raw {
		if item.ID == nil {
			continue
		}
		w := WindowInfo{
			ID:        *item.ID,
			Title:     "(untitled)",
			AppID:     "unknown",
			IsFocused: item.IsFocused,
		}
		if item.Title != nil {
			w.Title = *item.Title
		}
		if item.AppID != nil {
			w.AppID = *item.AppID
		}
		if item.WorkspaceID != nil {
			w.WorkspaceID = *item.WorkspaceID
		}
		windows = append(windows, w)
	}

	sort.SliceStable(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.IsFocused != b.IsFocused {
			return a.IsFocused
		}
		if a.WorkspaceID != b.WorkspaceID {
			return a.WorkspaceID < b.WorkspaceID
		}
		return a.Title < b.Title
	})
	return windows, nil
}

// FindWindow returns the window with id from windows.
func FindWindow(windows []WindowInfo, id uint64) (WindowInfo, bool) {
	for _, w := range windows {
		if w.ID == id {
			return w, true
		}
	}
	return WindowInfo{}, false
}

// FocusedWindow returns the focused window, if any.
func FocusedWindow(windows []WindowInfo) (WindowInfo, bool) {
	for _, w := range windows {
		if w.IsFocused {
			return w, true
		}
	}
	return WindowInfo{}, false
}
