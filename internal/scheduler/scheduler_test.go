package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillcert/internal/audit"
)

type countingAuditor struct {
	runs atomic.Int32
	last atomic.Value // time.Time
}

func (a *countingAuditor) RunAuditCheck(_ context.Context, now time.Time) (audit.Report, error) {
	a.runs.Add(1)
	a.last.Store(now)
	return audit.Report{}, nil
}

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.runs.Add(1)
	return 0, s.err
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{
		Auditor:       &countingAuditor{},
		Sweeper:       &countingSweeper{},
		AuditSchedule: "every day please",
	})
	assert.ErrorContains(t, err, "audit schedule")
}

func TestDefaults(t *testing.T) {
	s, err := New(Options{Auditor: &countingAuditor{}, Sweeper: &countingSweeper{}})
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	next := s.NextAudit()
	require.False(t, next.IsZero())
	assert.Equal(t, 3, next.In(time.UTC).Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestJobsRun(t *testing.T) {
	fixed := time.Date(2026, 7, 1, 3, 0, 0, 0, time.UTC)
	auditor := &countingAuditor{}
	sweeper := &countingSweeper{err: errors.New("store offline")}

	s, err := New(Options{
		Auditor:       auditor,
		Sweeper:       sweeper,
		AuditSchedule: "@every 1s",
		SweepInterval: time.Second,
		Now:           func() time.Time { return fixed },
	})
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return auditor.runs.Load() > 0 && sweeper.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, fixed, auditor.last.Load())
}
