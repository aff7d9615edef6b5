package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Iron-Ham/framegrab/internal/capture"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Session is the persisted record of the one in-progress recording.
type Session struct {
	ID  string
	PID int
	// StartTime is the recorder's kernel start time in clock ticks since
	// boot. Together with PID it identifies the process. Zero if unknown.
	StartTime    uint64
	Target       capture.Target
	StartedAt    time.Time
	AudioEnabled bool
	AudioDevice  string
	OutputPath   string
	Recorder     string

	Paused bool
	// PausedAt is when the current pause began. Zero unless Paused.
	PausedAt time.Time
	// PausedTotal accumulates completed pauses.
	PausedTotal time.Duration
}

type sessionJSON struct {
	ID           string          `json:"id"`
	PID          int             `json:"pid"`
	StartTime    uint64          `json:"start_time,omitempty"`
	Target       json.RawMessage `json:"target"`
	StartedAt    time.Time       `json:"started_at"`
	AudioEnabled bool            `json:"audio_enabled"`
	AudioDevice  string          `json:"audio_device,omitempty"`
	OutputPath   string          `json:"output_path"`
	Recorder     string          `json:"recorder,omitempty"`
	Paused       bool            `json:"paused"`
	PausedAt     *time.Time      `json:"paused_at,omitempty"`
	PausedTotal  string          `json:"paused_total,omitempty"`
}

// MarshalJSON encodes the session with its target in tagged form.
func (s Session) MarshalJSON() ([]byte, error) {
	target, err := capture.MarshalTarget(s.Target)
	if err != nil {
		return nil, err
	}
	out := sessionJSON{
		ID:           s.ID,
		PID:          s.PID,
		StartTime:    s.StartTime,
		Target:       target,
		StartedAt:    s.StartedAt,
		AudioEnabled: s.AudioEnabled,
		AudioDevice:  s.AudioDevice,
		OutputPath:   s.OutputPath,
		Recorder:     s.Recorder,
		Paused:       s.Paused,
	}
	if !s.PausedAt.IsZero() {
		pausedAt := s.PausedAt
		out.PausedAt = &pausedAt
	}
	if s.PausedTotal != 0 {
		out.PausedTotal = s.PausedTotal.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a session written by MarshalJSON.
func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Target) == 0 {
		return fmt.Errorf("session has no target")
	}
	target, err := capture.UnmarshalTarget(in.Target)
	if err != nil {
		return err
	}

	var pausedTotal time.Duration
	if in.PausedTotal != "" {
		pausedTotal, err = time.ParseDuration(in.PausedTotal)
		if err != nil {
			return fmt.Errorf("invalid paused_total: %w", err)
		}
	}

	*s = Session{
		ID:           in.ID,
		PID:          in.PID,
		StartTime:    in.StartTime,
		Target:       target,
		StartedAt:    in.StartedAt,
		AudioEnabled: in.AudioEnabled,
		AudioDevice:  in.AudioDevice,
		OutputPath:   in.OutputPath,
		Recorder:     in.Recorder,
		Paused:       in.Paused,
		PausedTotal:  pausedTotal,
	}
	if in.PausedAt != nil {
		s.PausedAt = *in.PausedAt
	}
	return nil
}

// Validate checks the invariants every stored session must hold.
func (s *Session) Validate() error {
	switch {
	case s.PID <= 0:
		return fgerrors.NewValidationError("session pid must be positive").WithField("pid").WithValue(s.PID)
	case s.OutputPath == "":
		return fgerrors.NewValidationError("session has no output path").WithField("output_path")
	case s.Target == nil:
		return fgerrors.NewValidationError("session has no target").WithField("target")
	case s.PausedTotal < 0:
		return fgerrors.NewValidationError("paused total must not be negative").WithField("paused_total").WithValue(s.PausedTotal)
	}
	return nil
}

// Elapsed returns the recorded time at now, excluding pauses.
func (s *Session) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(s.StartedAt) - s.PausedTotal
	if s.Paused && !s.PausedAt.IsZero() {
		elapsed -= now.Sub(s.PausedAt)
	}
	return max(elapsed, 0)
}

// MarkPaused records a pause beginning at now. It is a no-op when already paused.
func (s *Session) MarkPaused(now time.Time) {
	if s.Paused {
		return
	}
	s.Paused = true
	s.PausedAt = now
}

// MarkResumed folds the current pause into PausedTotal. It is a no-op when not paused.
func (s *Session) MarkResumed(now time.Time) {
	if !s.Paused {
		return
	}
	if !s.PausedAt.IsZero() && now.After(s.PausedAt) {
		s.PausedTotal += now.Sub(s.PausedAt)
	}
	s.Paused = false
	s.PausedAt = time.Time{}
}
