package testsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillcert/internal/store"
)

func TestSweep(t *testing.T) {
	e, fx := newTestEngine(t, fixtureOpts{timeLimit: 5})
	ctx := context.Background()

	a, err := e.StartSession(ctx, "u1", "t1")
	require.NoError(t, err)
	require.NoError(t, e.RecordAnswer(ctx, a.SessionID, "u1", "Q1", "A1"))
	_, err = e.StartSession(ctx, "u2", "t1")
	require.NoError(t, err)

	ended, err := e.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ended, "nothing has expired yet")

	fx.clock.Advance(6 * time.Second)
	_, err = e.StartSession(ctx, "u3", "t1")
	require.NoError(t, err)

	ended, err = e.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ended)

	for user, score := range map[string]int{"u1": 1, "u2": 0} {
		res, err := fx.store.ResultRepo().GetResult(ctx, user, "t1")
		require.NoError(t, err)
		require.NotNil(t, res, user)
		assert.Equal(t, score, res.Score, user)
	}

	left, err := fx.store.SessionRepo().ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "u3", left[0].UserID)
}

func TestResume(t *testing.T) {
	e, fx := newTestEngine(t, fixtureOpts{})
	ctx := context.Background()
	now := fx.clock.Now()
	sessions := fx.store.SessionRepo()

	live := &store.Session{
		ID: SessionKey("u1", "t1"), UserID: "u1", TestID: "t1",
		StartedAt: now.Add(-time.Second), Deadline: now.Add(4 * time.Second),
		TimeLimitSeconds: 5, Answers: map[string]string{},
	}
	stale := &store.Session{
		ID: SessionKey("u2", "t1"), UserID: "u2", TestID: "t1",
		StartedAt: now.Add(-time.Hour), Deadline: now.Add(-time.Hour + 5*time.Second),
		TimeLimitSeconds: 5, Answers: map[string]string{"Q1": "A1"},
	}
	require.NoError(t, sessions.PutSession(ctx, live))
	require.NoError(t, sessions.PutSession(ctx, stale))

	armed, err := e.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, armed)
	assert.True(t, e.timers.armed(live.ID))

	res, err := fx.store.ResultRepo().GetResult(ctx, "u2", "t1")
	require.NoError(t, err)
	require.NotNil(t, res, "a session that expired while down is finalized")
	assert.Equal(t, 1, res.Score)
}

func TestScore(t *testing.T) {
	def := sampleTest(1, 5)
	tests := []struct {
		name    string
		answers map[string]string
		want    int
	}{
		{"none", nil, 0},
		{"one right one wrong", map[string]string{"Q1": "A1", "Q2": "X"}, 1},
		{"all right", map[string]string{"Q1": "A1", "Q2": "A2"}, 2},
		{"unknown question", map[string]string{"Q7": "A1"}, 0},
		{"variant from another question", map[string]string{"Q1": "A2"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(def, tt.answers))
		})
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.lock("a")
	unlock()
	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
