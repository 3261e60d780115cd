// Package screen provides the platform frame sources consumed by the
// capture engine: one per physical display, plus the focused window.
package screen

import (
	"fmt"
	"image"
	"regexp"
	"strconv"

	"github.com/kbinani/screenshot"

	"github.com/screenwatch/screenwatch/internal/capture"
	"github.com/screenwatch/screenwatch/internal/event"
)

// Monitor id format: "name_width_height_x_y", e.g. "display0_1920_1080_0_0".
var monitorIDPattern = regexp.MustCompile(`^(?P<name>.+)_(?P<w>\d+)_(?P<h>\d+)_(?P<x>-?\d+)_(?P<y>-?\d+)$`)

// Display captures one physical display, matched by the geometry encoded
// in its source id.
type Display struct {
	id     string
	bounds image.Rectangle
}

// ListDisplays returns the source id of every active display. The display
// subsystem exposes no stable names, so ids use an index-based name; the
// geometry suffix is what actually identifies the display.
func ListDisplays() []string {
	n := screenshot.NumActiveDisplays()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		ids = append(ids, event.MonitorSourceID(fmt.Sprintf("display%d", i), b.Dx(), b.Dy(), b.Min.X, b.Min.Y))
	}
	return ids
}

// FindDisplay resolves a geometry-encoded monitor id against the displays
// currently attached. The name component is informational only; width,
// height and origin must all match.
func FindDisplay(id string) (*Display, error) {
	_, w, h, x, y, err := ParseMonitorID(id)
	if err != nil {
		return nil, err
	}

	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		if b.Dx() == w && b.Dy() == h && b.Min.X == x && b.Min.Y == y {
			return &Display{id: id, bounds: b}, nil
		}
	}
	return nil, fmt.Errorf("no attached display matches %q (%dx%d at %d,%d)", id, w, h, x, y)
}

// Capture grabs the display's current pixels.
func (d *Display) Capture() (*capture.Frame, error) {
	img, err := screenshot.CaptureRect(d.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %s: %w", d.id, err)
	}
	return &capture.Frame{Image: img}, nil
}

// ID returns the display's source id.
func (d *Display) ID() string {
	return d.id
}

// ParseMonitorID splits a monitor source id into its name and geometry.
func ParseMonitorID(id string) (name string, width, height, x, y int, err error) {
	m := monitorIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, 0, 0, 0, fmt.Errorf("invalid monitor id format: %q", id)
	}
	name = m[1]
	width, _ = strconv.Atoi(m[2])
	height, _ = strconv.Atoi(m[3])
	x, _ = strconv.Atoi(m[4])
	y, _ = strconv.Atoi(m[5])
	return name, width, height, x, y, nil
}
