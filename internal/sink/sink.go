// Package sink consumes emitted captures and fans them out to the
// configured destinations: local storage, OCR, activity heartbeats and the
// status server. The consumer is the only backpressure on the capture
// channel; a slow destination slows capture rather than dropping frames.
package sink

import (
	"context"

	"github.com/screenwatch/screenwatch/internal/analyze"
	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/report"
	"github.com/screenwatch/screenwatch/internal/store"
	"github.com/screenwatch/screenwatch/internal/syncx"
	"github.com/screenwatch/screenwatch/internal/trace"
)

// Publisher pushes an emitted capture to status clients.
type Publisher interface {
	Publish(ctx context.Context, res *event.CaptureResult)
}

// Totals counts what the sink has processed since startup.
type Totals struct {
	Received int
	Stored   int
	Errors   int
}

// Options selects the destinations. Any field may be nil (or zero) to
// disable that destination.
type Options struct {
	Store     *store.Store
	Analyzer  analyze.Analyzer
	Reporter  *report.Reporter
	Publisher Publisher

	// MaxCount stops the sink after that many results. Zero means run
	// until cancelled.
	MaxCount int
}

// Sink drains the capture channel.
type Sink struct {
	opts   Options
	totals *syncx.RWGuard[Totals]
}

// New creates a sink with the given destinations.
func New(opts Options) *Sink {
	return &Sink{
		opts:   opts,
		totals: syncx.NewGuard(Totals{}),
	}
}

// Totals returns a snapshot of the processed counts.
func (s *Sink) Totals() Totals {
	return s.totals.Get()
}

// Run consumes results until the context is cancelled or MaxCount results
// have been handled. Reaching MaxCount closes the receiver, which in turn
// terminates any producer blocked on a full channel.
func (s *Sink) Run(ctx context.Context, rx *event.Receiver) error {
	log := trace.Logger(ctx)
	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-rx.C():
			s.handle(ctx, &res)
			count++
			if s.opts.MaxCount > 0 && count >= s.opts.MaxCount {
				log.Info("capture limit reached", "count", count)
				rx.Close()
				return nil
			}
		}
	}
}

func (s *Sink) handle(ctx context.Context, res *event.CaptureResult) {
	ctx, span := trace.StartSpan(ctx, "handle_capture")
	defer span.End()
	span.SetAttr("source", res.SourceID)

	log := trace.Logger(ctx)
	s.totals.Update(func(t *Totals) { t.Received++ })

	var meta *analyze.Metadata
	if s.opts.Analyzer != nil {
		m, err := s.opts.Analyzer.Analyze(ctx, res.Image)
		if err != nil {
			log.Warn("analyze failed", "source", res.SourceID, "error", err)
			s.totals.Update(func(t *Totals) { t.Errors++ })
		} else {
			meta = m
		}
	}

	if s.opts.Store != nil {
		path, err := s.opts.Store.Save(ctx, res, meta)
		if err != nil {
			log.Error("store failed", "source", res.SourceID, "error", err)
			s.totals.Update(func(t *Totals) { t.Errors++ })
		} else {
			log.Debug("capture stored", "source", res.SourceID, "path", path)
			s.totals.Update(func(t *Totals) { t.Stored++ })
		}
	}

	if s.opts.Reporter != nil && res.Window != nil {
		// Heartbeats retry with backoff; keep them off the consume loop.
		go func(res *event.CaptureResult) {
			if err := s.opts.Reporter.Heartbeat(ctx, res); err != nil {
				log.Warn("heartbeat failed", "app", res.Window.AppName, "error", err)
			}
		}(res)
	}

	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(ctx, res)
	}
}
