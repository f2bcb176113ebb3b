package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/types"
)

func TestStateMachine_HappyPath(t *testing.T) {
	s := newSession()
	assert.Equal(t, Unauthenticated, s.state)

	require.NoError(t, s.authenticate())
	require.NoError(t, s.match(3, types.Record{UID: "S004"}))
	assert.True(t, s.canEdit())
	assert.Equal(t, 3, s.index)

	require.NoError(t, s.markUpdated(types.Record{UID: "S004", Name: "x"}))
	require.NoError(t, s.markUpdated(types.Record{UID: "S004", Name: "y"}), "edits may repeat")
	assert.Equal(t, "y", s.record.Name)

	require.NoError(t, s.logout())
	assert.Equal(t, LoggedOut, s.state)
	assert.Equal(t, -1, s.index)
	assert.False(t, s.canEdit())
}

func TestStateMachine_RejectsSkippedSteps(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Session) error
	}{
		{"match before authenticate", func(s *Session) error { return s.match(0, types.Record{}) }},
		{"update before match", func(s *Session) error {
			_ = s.authenticate()
			return s.markUpdated(types.Record{})
		}},
		{"authenticate twice", func(s *Session) error {
			_ = s.authenticate()
			return s.authenticate()
		}},
		{"logout twice", func(s *Session) error {
			_ = s.logout()
			return s.logout()
		}},
		{"update after logout", func(s *Session) error {
			_ = s.authenticate()
			_ = s.match(0, types.Record{})
			_ = s.logout()
			return s.markUpdated(types.Record{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newSession())
			assert.True(t, apperr.HasCode(err, apperr.CodeInvalidTransition), "got %v", err)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "record_matched", RecordMatched.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestManager_Expiry(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	m := NewManager(10 * time.Minute)
	m.now = func() time.Time { return now }

	a := newSession()
	tokenA := m.add(a)
	assert.NotEmpty(t, tokenA)
	assert.Equal(t, tokenA, a.token)

	now = now.Add(6 * time.Minute)
	tokenB := m.add(newSession())
	assert.NotEqual(t, tokenA, tokenB)

	now = now.Add(6 * time.Minute)
	_, ok := m.Get(tokenA)
	assert.False(t, ok, "idle for 12 minutes")
	got, ok := m.Get(tokenB)
	require.True(t, ok)
	assert.Equal(t, tokenB, got.Token())

	// Get refreshed B's timer.
	now = now.Add(9 * time.Minute)
	assert.Equal(t, 1, m.Len())

	m.Remove(tokenB)
	assert.Equal(t, 0, m.Len())
	m.Remove("unknown")
}
