package capture

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/screenwatch/screenwatch/internal/config"
	"github.com/screenwatch/screenwatch/internal/event"
)

// gradientImage is the static "unchanged screen" fixture.
func gradientImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 160; x++ {
			v := uint8(x * 255 / 159)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// checkerImage is structurally different from gradientImage, far past any
// reasonable hash threshold.
func checkerImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 160; x++ {
			if (x/20+y/20)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func testSourceConfig() config.Source {
	return config.Source{
		Enabled:           true,
		IntervalMS:        1000,
		EnforceIntervalMS: 30000,
		HashResolution:    16,
		HashThreshold:     10,
	}
}

func monitorState(t *testing.T) *State {
	t.Helper()
	desc := Monitor("M1_1920_1080_0_0", testSourceConfig(), nil)
	return NewState(desc, SwitchBypassAll)
}

func windowState(t *testing.T, policy SwitchPolicy) *State {
	t.Helper()
	desc := Window(testSourceConfig(), nil)
	return NewState(desc, policy)
}

func mustEvaluate(t *testing.T, s *State, now time.Time, frame *Frame) (*event.CaptureResult, Verdict) {
	t.Helper()
	res, verdict, err := s.Evaluate(context.Background(), now, frame)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return res, verdict
}

func TestFirstCaptureAlwaysEmits(t *testing.T) {
	s := monitorState(t)
	now := time.Now()

	res, verdict := mustEvaluate(t, s, now, &Frame{Image: gradientImage()})
	if verdict != VerdictEmit {
		t.Fatalf("first evaluation verdict = %v, want emit", verdict)
	}
	if res.SourceID != "M1_1920_1080_0_0" {
		t.Errorf("SourceID = %q", res.SourceID)
	}
	if !res.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", res.Timestamp, now)
	}
}

func TestTimeFloor(t *testing.T) {
	s := monitorState(t)
	t0 := time.Now()
	static := gradientImage()

	if _, verdict := mustEvaluate(t, s, t0, &Frame{Image: static}); verdict != VerdictEmit {
		t.Fatalf("initial verdict = %v, want emit", verdict)
	}

	// 10s later, unchanged screen: inside the enforce interval.
	if _, verdict := mustEvaluate(t, s, t0.Add(10*time.Second), &Frame{Image: static}); verdict != VerdictSkipTime {
		t.Errorf("verdict at +10s = %v, want skip-time", verdict)
	}

	// 31s later: the time gate opens but the similarity gate still holds
	// an unchanged screen back indefinitely.
	if _, verdict := mustEvaluate(t, s, t0.Add(31*time.Second), &Frame{Image: static}); verdict != VerdictSkipSimilar {
		t.Errorf("verdict at +31s unchanged = %v, want skip-similar", verdict)
	}

	// 31s later with a changed screen: emit.
	res, verdict := mustEvaluate(t, s, t0.Add(31*time.Second), &Frame{Image: checkerImage()})
	if verdict != VerdictEmit {
		t.Errorf("verdict at +31s changed = %v, want emit", verdict)
	}
	if res == nil {
		t.Fatal("emit verdict should carry a result")
	}
}

func TestMonotonicEmission(t *testing.T) {
	s := monitorState(t)
	t0 := time.Now()

	frames := []*Frame{{Image: gradientImage()}, {Image: checkerImage()}, {Image: gradientImage()}}
	var last time.Time
	for i, f := range frames {
		now := t0.Add(time.Duration(i) * 40 * time.Second)
		res, verdict := mustEvaluate(t, s, now, f)
		if verdict != VerdictEmit {
			t.Fatalf("frame %d verdict = %v, want emit", i, verdict)
		}
		if !res.Timestamp.After(last) {
			t.Errorf("frame %d timestamp %v not after %v", i, res.Timestamp, last)
		}
		last = res.Timestamp
	}
}

func TestWindowSwitchForcesEmit(t *testing.T) {
	s := windowState(t, SwitchBypassAll)
	t0 := time.Now()
	static := gradientImage()

	first := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Editor", Title: "main.go", WindowID: 7}}
	if _, verdict := mustEvaluate(t, s, t0, first); verdict != VerdictEmit {
		t.Fatalf("first window capture verdict = %v, want emit", verdict)
	}

	// Pixel-identical frame 1ms later, but a different window: both gates
	// are bypassed.
	switched := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Browser", Title: "docs", WindowID: 9}}
	res, verdict := mustEvaluate(t, s, t0.Add(time.Millisecond), switched)
	if verdict != VerdictEmit {
		t.Fatalf("post-switch verdict = %v, want emit", verdict)
	}
	if res.SourceID != "window_Browser_9" {
		t.Errorf("SourceID = %q, want window_Browser_9", res.SourceID)
	}

	// Same window again 1ms later: the time gate applies as usual.
	if _, verdict := mustEvaluate(t, s, t0.Add(2*time.Millisecond), switched); verdict != VerdictSkipTime {
		t.Errorf("same-window verdict = %v, want skip-time", verdict)
	}
}

func TestWindowSwitchBypassSimilarityPolicy(t *testing.T) {
	s := windowState(t, SwitchBypassSimilarity)
	t0 := time.Now()
	static := gradientImage()

	first := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Editor", WindowID: 7}}
	if _, verdict := mustEvaluate(t, s, t0, first); verdict != VerdictEmit {
		t.Fatalf("first verdict = %v, want emit", verdict)
	}

	switched := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Browser", WindowID: 9}}

	// Under bypass-similarity the time gate still holds a fast switch back.
	if _, verdict := mustEvaluate(t, s, t0.Add(time.Millisecond), switched); verdict != VerdictSkipTime {
		t.Errorf("fast-switch verdict = %v, want skip-time", verdict)
	}

	// Past the enforce interval the switch emits even though the image is
	// pixel-identical.
	if _, verdict := mustEvaluate(t, s, t0.Add(31*time.Second), switched); verdict != VerdictEmit {
		t.Errorf("late-switch verdict = %v, want emit", verdict)
	}
}

func TestWindowIdentityUsesAppAndID(t *testing.T) {
	s := windowState(t, SwitchBypassAll)
	t0 := time.Now()
	static := gradientImage()

	first := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Editor", WindowID: 7}}
	mustEvaluate(t, s, t0, first)

	// Same app, new window id: still a switch.
	sameApp := &Frame{Image: static, Window: &event.WindowMeta{AppName: "Editor", WindowID: 8}}
	if _, verdict := mustEvaluate(t, s, t0.Add(time.Millisecond), sameApp); verdict != VerdictEmit {
		t.Errorf("new-window verdict = %v, want emit", verdict)
	}
}

func TestClockSkewDoesNotStall(t *testing.T) {
	s := monitorState(t)
	t0 := time.Now()

	mustEvaluate(t, s, t0, &Frame{Image: gradientImage()})

	// The clock jumps backwards. The time gate is treated as satisfied;
	// a changed screen emits instead of stalling until the clock catches up.
	res, verdict := mustEvaluate(t, s, t0.Add(-5*time.Second), &Frame{Image: checkerImage()})
	if verdict != VerdictEmit {
		t.Fatalf("post-skew verdict = %v, want emit", verdict)
	}
	if res == nil {
		t.Fatal("emit verdict should carry a result")
	}

	// An unchanged screen is still held back by the similarity gate.
	if _, verdict := mustEvaluate(t, s, t0.Add(-4*time.Second), &Frame{Image: checkerImage()}); verdict != VerdictSkipSimilar {
		t.Errorf("post-skew unchanged verdict = %v, want skip-similar", verdict)
	}
}

func TestEvaluateHashError(t *testing.T) {
	cfg := testSourceConfig()
	cfg.HashResolution = 10 // not a multiple of 8
	s := NewState(Monitor("M1_1_1_0_0", cfg, nil), SwitchBypassAll)

	if _, _, err := s.Evaluate(context.Background(), time.Now(), &Frame{Image: gradientImage()}); err == nil {
		t.Error("Evaluate with invalid resolution should fail")
	}
}
