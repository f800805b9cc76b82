package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, nil
}

func TestJanitorRejectsInvalidSchedule(t *testing.T) {
	_, err := NewJanitor(NewJanitorOpts{Purger: &countingPurger{}, Schedule: "every so often"})
	require.Error(t, err)
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	purger := &countingPurger{}
	janitor, err := NewJanitor(NewJanitorOpts{Purger: purger, Schedule: "@every 1s"})
	require.NoError(t, err)
	janitor.Start()
	defer janitor.Stop()
	require.Eventually(t, func() bool { return purger.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
