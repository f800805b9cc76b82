package session

import (
	"context"
	"fmt"
	"time"

	"dotmac/internal/common"

	"github.com/robfig/cron/v3"
)

const DefaultJanitorSchedule = "@every 1h"

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type NewJanitorOpts struct {
	Purger      Purger
	Schedule    string
	Timeout     time.Duration
	ServiceLogs chan<- common.ServiceLog
}

// NewJanitor schedules periodic purges of expired sessions, nothing runs
// until Start is called
func NewJanitor(opts NewJanitorOpts) (*Janitor, error) {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	janitor := &Janitor{
		cron:        cron.New(),
		purger:      opts.Purger,
		timeout:     timeout,
		serviceLogs: serviceLogs,
	}
	if _, err := janitor.cron.AddFunc(schedule, janitor.run); err != nil {
		return nil, fmt.Errorf("failed to parse janitor schedule[%s]: %w", schedule, err)
	}
	return janitor, nil
}

type Janitor struct {
	cron        *cron.Cron
	purger      Purger
	timeout     time.Duration
	serviceLogs chan<- common.ServiceLog
}

func (j *Janitor) Start() {
	j.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "session janitor starting")
	j.cron.Start()
}

// Stop waits for a running purge to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	purged, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.serviceLogs <- common.ServiceLogf(common.LogLevelError, "failed to purge expired sessions: %s", err)
		return
	}
	j.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "purged %v expired session records", purged)
}
