package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := New("schema-registry")
	assert.Equal(t, "schema-registry", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_Transitions(t *testing.T) {
	type step struct {
		fail       bool
		wantOpen   bool
		wantOpened bool
		wantClosed bool
	}
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true},
				{fail: true},
				{fail: true, wantOpen: true, wantOpened: true},
				{fail: true, wantOpen: true},
			},
		},
		{
			name: "success clears the failure streak",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true},
				{fail: false},
				{fail: true},
				{fail: true, wantOpen: true, wantOpened: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, wantOpened: true},
				{fail: false, wantOpen: true},
				{fail: false, wantClosed: true},
			},
		},
		{
			name: "failure while open restarts the success streak",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, wantOpened: true},
				{fail: false, wantOpen: true},
				{fail: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: false, wantClosed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.opts...)
			for i, s := range tt.steps {
				var change Change
				if s.fail {
					_, change = b.RecordFailure()
				} else {
					_, change = b.RecordSuccess()
				}
				require.Equal(t, s.wantOpen, b.IsOpen(), "step %d open", i)
				require.Equal(t, s.wantOpened, change.Opened, "step %d opened", i)
				require.Equal(t, s.wantClosed, change.Closed, "step %d closed", i)
			}
		})
	}
}

func TestBreaker_ResetClosesImmediately(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	useFallback, _ := b.RecordFailure()
	require.True(t, useFallback)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary)
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	b := New("test", WithFailureThreshold(1), WithCooldown(30*time.Second), WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "first call after cooldown is a probe")
	assert.False(t, b.Allow(), "probe restarts the cooldown")
	assert.Equal(t, "open", b.State().String())
}
