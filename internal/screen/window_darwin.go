package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/screenwatch/screenwatch/internal/capture"
)

// focusProbeScript reports the frontmost window as a single tab-separated
// line: app, pid, x, y, width, height, minimized, title. System Events
// exposes no per-window numeric id, so the owning process id stands in as
// the window identifier.
const focusProbeScript = `
tell application "System Events"
	set frontProcs to application processes whose frontmost is true
	if (count of frontProcs) = 0 then error "no focused window"
	set frontApp to item 1 of frontProcs
	set appName to name of frontApp
	set appPid to unix id of frontApp
	if (count of windows of frontApp) = 0 then error "no focused window"
	set win to front window of frontApp
	set {winX, winY} to position of win
	set {winW, winH} to size of win
	set winTitle to name of win
	set isMin to "false"
	try
		if value of attribute "AXMinimized" of win then set isMin to "true"
	end try
end tell
return appName & tab & appPid & tab & winX & tab & winY & tab & winW & tab & winH & tab & isMin & tab & winTitle
`

// probeFocusedWindow asks System Events for the frontmost window.
func probeFocusedWindow() (*focusInfo, error) {
	cmd := exec.Command("osascript", "-e", focusProbeScript)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if strings.Contains(stderr.String(), "no focused window") {
			return nil, capture.ErrNoFocusedWindow
		}
		return nil, fmt.Errorf("focus probe failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseFocusProbe(string(out))
}

// captureWindowImage grabs the window's screen region using the native
// screencapture command.
func captureWindowImage(info *focusInfo) (*image.RGBA, error) {
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("screenwatch-window-%d.png", os.Getpid()))
	defer os.Remove(tmpFile)

	region := fmt.Sprintf("%d,%d,%d,%d", info.x, info.y, info.w, info.h)
	cmd := exec.Command("screencapture", "-x", "-t", "png", "-R", region, tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("screencapture failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read screencapture output: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screencapture output: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
