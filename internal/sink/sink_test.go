package sink

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/screenwatch/screenwatch/internal/analyze"
	"github.com/screenwatch/screenwatch/internal/event"
)

type fakeAnalyzer struct {
	meta *analyze.Metadata
	err  error
}

func (f *fakeAnalyzer) Analyze(context.Context, image.Image) (*analyze.Metadata, error) {
	return f.meta, f.err
}

type fakePublisher struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakePublisher) Publish(_ context.Context, res *event.CaptureResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, res.SourceID)
}

func (f *fakePublisher) sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func result(id string) event.CaptureResult {
	return event.CaptureResult{
		SourceID:  id,
		Timestamp: time.Now(),
		Image:     image.NewRGBA(image.Rect(0, 0, 8, 8)),
	}
}

func TestRunStopsAtMaxCount(t *testing.T) {
	tx, rx := event.NewChannel(10)
	pub := &fakePublisher{}
	s := New(Options{Publisher: pub, MaxCount: 2})

	for i := 0; i < 2; i++ {
		if err := tx.Send(result("display0_10_10_0_0")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	if err := s.Run(context.Background(), rx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.Totals().Received; got != 2 {
		t.Errorf("received = %d, want 2", got)
	}
	if len(pub.sources()) != 2 {
		t.Errorf("published = %d, want 2", len(pub.sources()))
	}

	// The receiver is closed; further sends must fail.
	if err := tx.Send(result("display0_10_10_0_0")); !errors.Is(err, event.ErrReceiverClosed) {
		t.Errorf("Send after limit = %v, want ErrReceiverClosed", err)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	_, rx := event.NewChannel(1)
	s := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, rx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAnalyzerErrorDoesNotStopSink(t *testing.T) {
	tx, rx := event.NewChannel(4)
	s := New(Options{
		Analyzer: &fakeAnalyzer{err: errors.New("ocr exploded")},
		MaxCount: 3,
	})

	for i := 0; i < 3; i++ {
		if err := tx.Send(result("display0_10_10_0_0")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if err := s.Run(context.Background(), rx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	totals := s.Totals()
	if totals.Received != 3 {
		t.Errorf("received = %d, want 3", totals.Received)
	}
	if totals.Errors != 3 {
		t.Errorf("errors = %d, want 3", totals.Errors)
	}
}
