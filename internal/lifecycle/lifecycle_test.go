package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSpeaker struct {
	spoken []string
	stops  int
}

func (r *recordingSpeaker) Speak(text string) { r.spoken = append(r.spoken, text) }
func (r *recordingSpeaker) Stop()             { r.stops++ }

func TestInitRunsOnce(t *testing.T) {
	state := NewAppState(nil, nil)

	calls := 0
	setup := func(context.Context) error { calls++; return nil }
	require.NoError(t, state.Init(setup))
	require.NoError(t, state.Init(setup))
	assert.Equal(t, 1, calls)
	assert.True(t, state.Initialized())
}

func TestInitFailureCanBeRetried(t *testing.T) {
	state := NewAppState(nil, nil)

	err := state.Init(func(context.Context) error { return errors.New("no voice") })
	assert.EqualError(t, err, "no voice")
	assert.False(t, state.Initialized())

	require.NoError(t, state.Init(nil))
	assert.True(t, state.Initialized())
}

func TestAnnounceIsMutedInBackground(t *testing.T) {
	speaker := &recordingSpeaker{}
	state := NewAppState(speaker, nil)

	assert.False(t, state.Announce("before init"))
	require.NoError(t, state.Init(nil))

	assert.True(t, state.Announce("front"))
	state.SetForeground(false)
	assert.False(t, state.Foreground())
	assert.False(t, state.Announce("side"))
	assert.False(t, state.Announce("   "))

	state.SetForeground(true)
	assert.True(t, state.Announce("top"))

	assert.Equal(t, []string{"front", "top"}, speaker.spoken)
	assert.GreaterOrEqual(t, speaker.stops, 3)
}

func TestShutdownCancelsScopes(t *testing.T) {
	state := NewAppState(&recordingSpeaker{}, nil)
	require.NoError(t, state.Init(nil))

	scope := NewScope(state.Context())
	assert.False(t, scope.Closed())

	state.Shutdown()
	assert.True(t, scope.Closed())
	assert.ErrorIs(t, scope.Context().Err(), context.Canceled)
	assert.False(t, state.Initialized())
	assert.False(t, state.Announce("after"))
}

func TestScopeClose(t *testing.T) {
	scope := NewScope(nil)
	scope.Close()
	scope.Close()
	assert.True(t, scope.Closed())
}
