package capture

import "errors"

// Recoverable capture conditions. They resolve to a skipped cycle, leave
// source state untouched, and never count toward the error threshold.
var (
	// ErrNoFocusedWindow means no window currently has focus.
	ErrNoFocusedWindow = errors.New("no focused window")

	// ErrWindowMinimized means the focused window cannot be captured.
	ErrWindowMinimized = errors.New("focused window is minimized")
)

// IsRecoverable reports whether err is a skip condition rather than a
// transient capture failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoFocusedWindow) || errors.Is(err, ErrWindowMinimized)
}
