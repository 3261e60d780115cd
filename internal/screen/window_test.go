package screen

import "testing"

func TestParseFocusProbe(t *testing.T) {
	out := "Firefox\t4211\t100\t50\t1280\t720\tfalse\tscreenwatch docs - Mozilla Firefox\n"

	info, err := parseFocusProbe(out)
	if err != nil {
		t.Fatalf("parseFocusProbe() error = %v", err)
	}

	if info.app != "Firefox" {
		t.Errorf("app = %q", info.app)
	}
	if info.windowID != 4211 {
		t.Errorf("windowID = %d, want 4211", info.windowID)
	}
	if info.x != 100 || info.y != 50 || info.w != 1280 || info.h != 720 {
		t.Errorf("geometry = (%d,%d,%d,%d)", info.x, info.y, info.w, info.h)
	}
	if info.minimized {
		t.Error("minimized = true, want false")
	}
	if info.title != "screenwatch docs - Mozilla Firefox" {
		t.Errorf("title = %q", info.title)
	}
}

func TestParseFocusProbeMinimized(t *testing.T) {
	info, err := parseFocusProbe("Mail\t99\t0\t0\t800\t600\ttrue\tInbox")
	if err != nil {
		t.Fatalf("parseFocusProbe() error = %v", err)
	}
	if !info.minimized {
		t.Error("minimized = false, want true")
	}
}

func TestParseFocusProbeTitleWithTabs(t *testing.T) {
	// Only the title may contain the separator; it must survive intact.
	info, err := parseFocusProbe("Terminal\t7\t0\t0\t80\t24\tfalse\ta\tb\tc")
	if err != nil {
		t.Fatalf("parseFocusProbe() error = %v", err)
	}
	if info.title != "a\tb\tc" {
		t.Errorf("title = %q, want %q", info.title, "a\tb\tc")
	}
}

func TestParseFocusProbeMalformed(t *testing.T) {
	tests := []string{
		"",
		"Firefox\t4211",
		"Firefox\tnot-a-pid\t0\t0\t1\t1\tfalse\ttitle",
		"Firefox\t1\tx\t0\t1\t1\tfalse\ttitle",
	}
	for _, out := range tests {
		if _, err := parseFocusProbe(out); err == nil {
			t.Errorf("parseFocusProbe(%q) should fail", out)
		}
	}
}
