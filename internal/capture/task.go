package capture

import (
	"context"
	"errors"
	"time"

	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/trace"
)

// maxConsecutiveErrors is how many back-to-back transient capture failures
// a task survives; one more terminates it.
const maxConsecutiveErrors = 10

// errorBackoffFactor stretches the poll interval after a transient failure.
const errorBackoffFactor = 3

// Task is one independent polling loop bound to exactly one source and its
// state. It self-terminates on cancellation, on the consecutive error
// threshold, or when the result receiver is gone.
type Task struct {
	desc   Descriptor
	state  *State
	sender *event.Sender
	clock  func() time.Time
}

func newTask(desc Descriptor, sender *event.Sender, policy SwitchPolicy, clock func() time.Time) *Task {
	if clock == nil {
		clock = time.Now
	}
	return &Task{
		desc:   desc,
		state:  NewState(desc, policy),
		sender: sender,
		clock:  clock,
	}
}

func (t *Task) run(ctx context.Context) {
	log := trace.Logger(ctx).With("source", t.desc.ID)
	log.Info("capture task started")

	consecutive := 0
	for {
		if ctx.Err() != nil {
			log.Info("capture task cancelled")
			return
		}

		switch err := t.tick(ctx); {
		case err == nil:
			consecutive = 0

		case errors.Is(err, event.ErrReceiverClosed):
			// The consumer is gone on purpose; not a fault.
			log.Info("result receiver closed, capture task stopping")
			return

		default:
			consecutive++
			log.Error("capture failed", "error", err, "consecutive", consecutive)
			if consecutive > maxConsecutiveErrors {
				log.Error("consecutive error limit exceeded, terminating capture task",
					"source", t.desc.ID, "limit", maxConsecutiveErrors)
				return
			}
			if !t.wait(ctx, t.desc.Config.Interval()*errorBackoffFactor) {
				log.Info("capture task cancelled during error backoff")
				return
			}
			continue
		}

		if !t.wait(ctx, t.desc.Config.Interval()) {
			log.Info("capture task cancelled during poll interval")
			return
		}
	}
}

// tick runs one capture-evaluate-send cycle. A nil return means the cycle
// succeeded (Emit or Skip) and resets the error counter.
func (t *Task) tick(ctx context.Context) error {
	now := t.clock()

	frame, err := t.desc.Source.Capture()
	if err != nil {
		if IsRecoverable(err) {
			trace.Logger(ctx).Debug("skipping capture", "source", t.desc.ID, "reason", err)
			return nil
		}
		return err
	}

	res, verdict, err := t.state.Evaluate(ctx, now, frame)
	if err != nil {
		return err
	}
	if verdict != VerdictEmit {
		trace.Logger(ctx).Debug("capture gated", "source", t.desc.ID, "verdict", verdict.String())
		return nil
	}
	return t.sender.Send(*res)
}

// wait sleeps for d or until cancellation, reporting whether the loop
// should continue.
func (t *Task) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
