// Package capture is the capture-and-deduplication engine: per-source
// gating state, independent polling tasks, and the manager that starts and
// joins them under a shared cancellation signal.
package capture

import (
	"image"

	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/event"
)

// Frame is one captured image. Window is set only by window sources.
type Frame struct {
	Image  *image.RGBA
	Window *event.WindowMeta
}

// FrameSource is the platform capability that grabs the current pixels of
// one source. Capture may block on the underlying display system; it is
// the only external call a task makes.
type FrameSource interface {
	Capture() (*Frame, error)
}

// SourceKind discriminates the two source variants. Monitor and window
// sources share the whole pipeline; the kind only decides identity
// formatting and the window-specific gating.
type SourceKind int

const (
	KindMonitor SourceKind = iota
	KindWindow
)

// windowLabel is the log/report identity of the window task. Emitted
// results carry the per-window id instead.
const windowLabel = "window"

// Descriptor binds one source's identity and settings to its frame source.
type Descriptor struct {
	Kind   SourceKind
	ID     string
	Config config.Source
	Source FrameSource
}

// Monitor describes a display source with a fixed geometry-encoded id.
func Monitor(id string, cfg config.Source, src FrameSource) Descriptor {
	return Descriptor{Kind: KindMonitor, ID: id, Config: cfg, Source: src}
}

// Window describes the focused-window source. Result ids are derived from
// the captured window's identity at emit time.
func Window(cfg config.Source, src FrameSource) Descriptor {
	return Descriptor{Kind: KindWindow, ID: windowLabel, Config: cfg, Source: src}
}
