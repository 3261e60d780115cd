package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/screenwatch/screenwatch/internal/capture"
	"github.com/screenwatch/screenwatch/internal/event"
)

// FocusedWindow captures whichever window currently has focus. Unlike
// displays it has no fixed identity; each frame carries the identity of
// the window that was focused when it was grabbed.
type FocusedWindow struct{}

// NewFocusedWindow returns the focused-window frame source.
func NewFocusedWindow() *FocusedWindow {
	return &FocusedWindow{}
}

// Capture probes the focused window and grabs its pixels. No focus and a
// minimized window surface as the engine's recoverable skip conditions.
func (w *FocusedWindow) Capture() (*capture.Frame, error) {
	info, err := probeFocusedWindow()
	if err != nil {
		return nil, err
	}
	if info.minimized {
		return nil, capture.ErrWindowMinimized
	}

	img, err := captureWindowImage(info)
	if err != nil {
		return nil, fmt.Errorf("capture window %q: %w", info.app, err)
	}
	return &capture.Frame{
		Image: img,
		Window: &event.WindowMeta{
			AppName:  info.app,
			Title:    info.title,
			WindowID: info.windowID,
		},
	}, nil
}

// focusInfo is the frontmost-window snapshot reported by the platform
// probe.
type focusInfo struct {
	app       string
	title     string
	windowID  uint32
	x, y      int
	w, h      int
	minimized bool
}

// parseFocusProbe decodes the probe's tab-separated line:
// app, window id, x, y, width, height, minimized, title. The title comes
// last because it is the only field that may itself contain separators.
func parseFocusProbe(out string) (*focusInfo, error) {
	line := strings.TrimRight(out, "\r\n")
	fields := strings.SplitN(line, "\t", 8)
	if len(fields) != 8 {
		return nil, fmt.Errorf("malformed focus probe output: %q", line)
	}

	id, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("focus probe window id: %w", err)
	}

	var geom [4]int
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(fields[2+i]))
		if err != nil {
			return nil, fmt.Errorf("focus probe geometry: %w", err)
		}
		geom[i] = v
	}

	return &focusInfo{
		app:       fields[0],
		title:     fields[7],
		windowID:  uint32(id),
		x:         geom[0],
		y:         geom[1],
		w:         geom[2],
		h:         geom[3],
		minimized: strings.TrimSpace(fields[6]) == "true",
	}, nil
}
