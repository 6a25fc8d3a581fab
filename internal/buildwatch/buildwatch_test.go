package buildwatch

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/gert/internal/gerrit"
)

func msg(text, date string, rev int) gerrit.Message {
	m := gerrit.Message{Message: text, Date: date}
	if rev > 0 {
		m.RevisionNumber = &rev
	}
	return m
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		msgs []gerrit.Message
		want State
	}{
		{"empty", nil, StatePending},
		{"no build started", []gerrit.Message{msg("Uploaded patch set 1.", "t1", 1)}, StatePending},
		{"started only", []gerrit.Message{msg("Build Started https://ci/1", "t1", 1)}, StateRunning},
		{
			"verified plus",
			[]gerrit.Message{
				msg("Build Started", "t1", 1),
				msg("Patch Set 1: Verified+1", "t2", 1),
			},
			StateSuccess,
		},
		{
			"verified minus with spacing",
			[]gerrit.Message{
				msg("build started", "t1", 1),
				msg("Patch Set 1: Verified -1 Build failed", "t2", 1),
			},
			StateFailure,
		},
		{
			"verdict for older revision ignored",
			[]gerrit.Message{
				msg("Build Started", "t2", 2),
				msg("Patch Set 1: Verified+1", "t3", 1),
			},
			StateRunning,
		},
		{
			"missing revision tolerated",
			[]gerrit.Message{
				msg("Build Started", "t1", 0),
				msg("Verified+1", "t2", 2),
			},
			StateSuccess,
		},
		{
			"verdict before start ignored",
			[]gerrit.Message{
				msg("Verified+1", "t1", 1),
				msg("Build Started", "t2", 1),
			},
			StateRunning,
		},
		{
			"restart resets verdict",
			[]gerrit.Message{
				msg("Build Started", "t1", 1),
				msg("Verified-1", "t2", 1),
				msg("Build Started", "t3", 2),
			},
			StateRunning,
		},
		{
			"first verdict after start wins",
			[]gerrit.Message{
				msg("Build Started", "t1", 1),
				msg("Verified-1", "t2", 1),
				msg("Verified+1", "t3", 1),
			},
			StateFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.msgs))
		})
	}
}

// Terminal states must stay terminal when the stream is extended without
// a new Build-Started message.
func TestInterpretMonotonicity(t *testing.T) {
	base := []gerrit.Message{
		msg("Build Started", "t1", 1),
		msg("Verified+1", "t2", 1),
	}
	require.Equal(t, StateSuccess, Interpret(base))

	extended := append(append([]gerrit.Message{}, base...),
		msg("Some reviewer comment", "t3", 1),
		msg("Verified-1", "t4", 1),
	)
	assert.Equal(t, StateSuccess, Interpret(extended))
}

func TestWatchEmitsOneLinePerPoll(t *testing.T) {
	states := []State{StatePending, StateRunning, StateSuccess}
	i := 0
	poll := func(context.Context) (State, error) {
		s := states[i]
		i++
		return s, nil
	}

	var buf bytes.Buffer
	w := New(poll, time.Second, time.Minute, &buf)
	w.sleep = func(context.Context, time.Duration) error { return nil }

	final, err := w.Watch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, final)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"state":"pending"}`, lines[0])
	assert.Equal(t, `{"state":"running"}`, lines[1])
	assert.Equal(t, `{"state":"success"}`, lines[2])
}

func TestWatchFailureSleepsOnceMore(t *testing.T) {
	poll := func(context.Context) (State, error) { return StateFailure, nil }

	var buf bytes.Buffer
	sleeps := 0
	w := New(poll, time.Second, time.Minute, &buf)
	w.sleep = func(context.Context, time.Duration) error { sleeps++; return nil }

	final, err := w.Watch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailure, final)
	assert.Equal(t, 1, sleeps)
	assert.Equal(t, "{\"state\":\"failure\"}\n", buf.String())
}

func TestWatchTimesOut(t *testing.T) {
	poll := func(context.Context) (State, error) { return StateRunning, nil }

	var buf bytes.Buffer
	w := New(poll, time.Second, 3*time.Second, &buf)

	clock := time.Unix(0, 0)
	w.now = func() time.Time { return clock }
	w.sleep = func(_ context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return nil
	}

	_, err := w.Watch(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWatchNotFoundIsTerminal(t *testing.T) {
	poll := func(context.Context) (State, error) { return StateNotFound, nil }
	var buf bytes.Buffer
	w := New(poll, time.Second, time.Minute, &buf)
	w.sleep = func(context.Context, time.Duration) error {
		t.Fatal("must not sleep after not_found")
		return nil
	}

	final, err := w.Watch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNotFound, final)
}

func TestIntervalClamp(t *testing.T) {
	w := New(nil, 0, 0, nil)
	assert.Equal(t, time.Second, w.Interval)
	assert.Equal(t, 30*time.Minute, w.Timeout)
}
