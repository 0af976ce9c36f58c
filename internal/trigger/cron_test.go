package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/bakkerme/jobwatch/internal/config"
)

func TestCronValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.CronTrigger
		wantErr bool
	}{
		{"valid", config.CronTrigger{Schedule: "0 */6 * * *", Timezone: "Asia/Kolkata"}, false},
		{"descriptor", config.CronTrigger{Schedule: "@hourly"}, false},
		{"missing schedule", config.CronTrigger{}, true},
		{"bad schedule", config.CronTrigger{Schedule: "every now and then"}, true},
		{"bad timezone", config.CronTrigger{Schedule: "@daily", Timezone: "Mars/Olympus"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewCron(tc.cfg).Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCronStartClosesOnCancel(t *testing.T) {
	c := NewCron(config.CronTrigger{Schedule: "@every 1h"})
	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected no event before the first tick")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("event channel was not closed after cancel")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestCronStartRejectsInvalidSchedule(t *testing.T) {
	if _, err := NewCron(config.CronTrigger{Schedule: "nope"}).Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
