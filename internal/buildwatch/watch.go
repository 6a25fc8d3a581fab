package buildwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrTimeout is returned by Watch when the wall clock expires before a
// terminal state is observed. The CLI maps it to exit code 2.
var ErrTimeout = errors.New("timed out waiting for a terminal build state")

// Watcher runs the poll/emit/sleep loop. The poll function folds one
// fetch of the message stream into a State (a 404 maps to not_found at
// the adapter, not here).
type Watcher struct {
	Poll     func(ctx context.Context) (State, error)
	Interval time.Duration
	Timeout  time.Duration
	Out      io.Writer

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a watcher with the given poll function. Interval is clamped
// to at least one second; the default timeout is 30 minutes.
func New(poll func(ctx context.Context) (State, error), interval, timeout time.Duration, out io.Writer) *Watcher {
	if interval < time.Second {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Watcher{
		Poll:     poll,
		Interval: interval,
		Timeout:  timeout,
		Out:      out,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Watch polls until a terminal state or the timeout. Each iteration emits
// one JSON line {"state":…}. On failure it sleeps one extra interval
// before returning so CI logs have a chance to flush.
func (w *Watcher) Watch(ctx context.Context) (State, error) {
	deadline := w.now().Add(w.Timeout)
	for {
		state, err := w.Poll(ctx)
		if err != nil {
			return "", err
		}
		if err := w.emit(state); err != nil {
			return "", err
		}

		switch state {
		case StateSuccess, StateNotFound:
			return state, nil
		case StateFailure:
			if err := w.sleep(ctx, w.Interval); err != nil {
				return state, err
			}
			return state, nil
		}

		if w.now().After(deadline) {
			return state, ErrTimeout
		}
		if err := w.sleep(ctx, w.Interval); err != nil {
			return state, err
		}
	}
}

func (w *Watcher) emit(state State) error {
	line, err := json.Marshal(struct {
		State State `json:"state"`
	}{state})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w.Out, "%s\n", line)
	return err
}
