package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// sendSignal delivers sig to the process group led by pid, falling back to
// pid alone when it is not a group leader. A vanished process yields
// errors.ErrProcessGone.
func sendSignal(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	pgErr := unix.Kill(-pid, sig)
	if pgErr == nil {
		return nil
	}

	if errors.Is(pgErr, unix.ESRCH) || errors.Is(pgErr, unix.EPERM) {
		pidErr := unix.Kill(pid, sig)
		if pidErr == nil {
			return nil
		}
		if errors.Is(pidErr, unix.ESRCH) {
			return fgerrors.ErrProcessGone
		}
		return fmt.Errorf("sending %s to PID %d: %w", unix.SignalName(sig), pid, pidErr)
	}

	return fmt.Errorf("sending %s to process group %d: %w", unix.SignalName(sig), pid, pgErr)
}

// processAlive reports whether pid names a running (or stopped) process.
// Zombies count as exited.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	if err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}

	state, ok := procState(pid)
	if ok && (state == 'Z' || state == 'X') {
		return false
	}
	return true
}

// procState returns the scheduler state letter from /proc/<pid>/stat.
// ok is false where /proc is unavailable.
func procState(pid int) (byte, bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, false
	}
	// "pid (comm) S ..." where comm may itself contain ')'
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return 0, false
	}
	return data[i+2], true
}

// procStartTime returns the process start time from /proc/<pid>/stat, in
// clock ticks since boot. It survives exec, so it identifies the process
// launched as the recorder even when that was a wrapper.
func procStartTime(pid int) (uint64, bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, false
	}
	i := bytes.LastIndexByte(data, ')')
	if i < 0 {
		return 0, false
	}
	// Fields after comm start at 3 (state); starttime is field 22.
	fields := bytes.Fields(data[i+1:])
	if len(fields) < 20 {
		return 0, false
	}
	ticks, err := strconv.ParseUint(string(fields[19]), 10, 64)
	if err != nil {
		return 0, false
	}
	return ticks, true
}
