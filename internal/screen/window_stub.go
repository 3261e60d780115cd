//go:build !darwin

package screen

import (
	"errors"
	"image"
	"runtime"
)

var errWindowUnsupported = errors.New("focused window capture is not supported on " + runtime.GOOS)

func probeFocusedWindow() (*focusInfo, error) {
	return nil, errWindowUnsupported
}

func captureWindowImage(*focusInfo) (*image.RGBA, error) {
	return nil, errWindowUnsupported
}
