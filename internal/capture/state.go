package capture

import (
	"context"
	"time"

	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/phash"
	"github.com/screenwatch/screenwatch/internal/trace"
)

// SwitchPolicy controls which gates a window-identity change bypasses.
type SwitchPolicy int

const (
	// SwitchBypassAll treats a window switch as a first-class event: both
	// the time and similarity gates are skipped.
	SwitchBypassAll SwitchPolicy = iota

	// SwitchBypassSimilarity keeps the time gate in force across switches.
	SwitchBypassSimilarity
)

// SwitchPolicyFromConfig maps a config policy name to its value. Unknown
// names fall back to bypass-all, the default.
func SwitchPolicyFromConfig(name string) SwitchPolicy {
	if name == config.SwitchBypassSimilarity {
		return SwitchBypassSimilarity
	}
	return SwitchBypassAll
}

// Verdict is the outcome of one evaluation cycle.
type Verdict int

const (
	VerdictEmit Verdict = iota
	VerdictSkipTime
	VerdictSkipSimilar
)

func (v Verdict) String() string {
	switch v {
	case VerdictEmit:
		return "emit"
	case VerdictSkipTime:
		return "skip-time"
	case VerdictSkipSimilar:
		return "skip-similar"
	}
	return "unknown"
}

// windowIdentity is the app+id pair used for switch detection.
type windowIdentity struct {
	appName  string
	windowID uint32
}

// State is the per-source record of what was last emitted. It is owned
// exclusively by one task; exclusive ownership replaces locking.
type State struct {
	kind   SourceKind
	id     string
	cfg    config.Source
	policy SwitchPolicy

	lastEmit   time.Time
	lastHash   *phash.Hash
	lastWindow *windowIdentity
}

// NewState creates the gating state for one source. A fresh state always
// emits its first frame.
func NewState(desc Descriptor, policy SwitchPolicy) *State {
	return &State{kind: desc.Kind, id: desc.ID, cfg: desc.Config, policy: policy}
}

// Evaluate runs one gating cycle over a freshly captured frame and either
// constructs the result to emit or decides to skip. State is only mutated
// on emit, so every result's timestamp is strictly ahead of the previous
// one for this source.
func (s *State) Evaluate(ctx context.Context, now time.Time, frame *Frame) (*event.CaptureResult, Verdict, error) {
	forced := false
	var identity windowIdentity
	if s.kind == KindWindow && frame.Window != nil {
		identity = windowIdentity{appName: frame.Window.AppName, windowID: frame.Window.WindowID}
		if s.lastWindow == nil || *s.lastWindow != identity {
			forced = true
		}
	}

	bypassTime := forced && s.policy == SwitchBypassAll
	if !s.lastEmit.IsZero() && !bypassTime {
		delta := now.Sub(s.lastEmit)
		if delta < 0 {
			// Clock moved backwards. Treat the gate as satisfied rather
			// than stalling until the clock catches up.
			trace.Logger(ctx).Warn("clock moved backwards, time gate reset",
				"source", s.id, "last_emit", s.lastEmit, "now", now)
		} else if delta < s.cfg.EnforceInterval() {
			return nil, VerdictSkipTime, nil
		}
	}

	hash, err := phash.Compute(frame.Image, s.cfg.HashResolution)
	if err != nil {
		return nil, 0, err
	}
	if s.lastHash != nil && !forced {
		dist, err := phash.Distance(hash, s.lastHash)
		if err != nil {
			return nil, 0, err
		}
		if dist < s.cfg.HashThreshold {
			return nil, VerdictSkipSimilar, nil
		}
	}

	res := &event.CaptureResult{
		SourceID:  s.id,
		Timestamp: now,
		Image:     frame.Image,
		Window:    frame.Window,
	}
	if s.kind == KindWindow && frame.Window != nil {
		res.SourceID = event.WindowSourceID(*frame.Window)
		s.lastWindow = &identity
	}
	s.lastEmit = now
	s.lastHash = hash
	return res, VerdictEmit, nil
}
