// Package trigger schedules runs.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
)

// Cron emits a TriggerEvent on every tick of a cron schedule. Events are
// buffered by one; ticks that arrive while a run is still in progress are
// dropped.
type Cron struct {
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan core.TriggerEvent
	stopOnce sync.Once
}

func NewCron(cfg config.CronTrigger) *Cron {
	return &Cron{
		schedule: cfg.Schedule,
		timezone: cfg.Timezone,
	}
}

func (c *Cron) Name() string {
	return "cron"
}

func (c *Cron) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)
	}
	return nil
}

// Start begins emitting events until ctx is done, at which point the
// returned channel is closed.
func (c *Cron) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan core.TriggerEvent, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, func() {
		select {
		case c.events <- core.TriggerEvent{Source: c.Name(), Timestamp: time.Now().UTC()}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

// Stop halts the schedule, waits for a tick in flight and closes the event
// channel. It is safe to call more than once.
func (c *Cron) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			stopped := c.cron.Stop()
			<-stopped.Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}
