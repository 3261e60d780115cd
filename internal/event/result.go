// Package event defines the capture events emitted to downstream consumers
// and the bounded conduit they travel on.
package event

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// windowPrefix marks window-sourced ids; monitor ids never start with it.
const windowPrefix = "window_"

// WindowMeta identifies the focused window a frame was captured from.
type WindowMeta struct {
	AppName  string
	Title    string
	WindowID uint32
}

// CaptureResult is one emitted frame. It is immutable once constructed and
// owned by the channel until the consumer receives it. Window is set only
// for window-sourced results.
type CaptureResult struct {
	SourceID  string
	Timestamp time.Time
	Image     *image.RGBA
	Window    *WindowMeta
}

// MonitorSourceID encodes a display's identity from its geometry,
// e.g. "DP-1_1920_1080_0_0".
func MonitorSourceID(name string, width, height, x, y int) string {
	return fmt.Sprintf("%s_%d_%d_%d_%d", name, width, height, x, y)
}

// WindowSourceID encodes a window's identity, e.g. "window_Firefox_4211".
func WindowSourceID(meta WindowMeta) string {
	return fmt.Sprintf("%s%s_%d", windowPrefix, meta.AppName, meta.WindowID)
}

// IsWindowSource reports whether a source id names the focused-window
// source. Consumers distinguish the two namespaces purely by this prefix.
func IsWindowSource(sourceID string) bool {
	return strings.HasPrefix(sourceID, windowPrefix)
}
