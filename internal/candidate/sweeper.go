package candidate

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// StartExpirySweep runs SweepExpired on a cron/v3 schedule until ctx is
// canceled. This is strictly additive: the lazy sweep List and Stats
// already perform on every call remains the behavior correctness depends
// on; the cron schedule only narrows the window of staleness between
// enumerations. cron/v3 does not run an "@every" job more than once a
// second, so an interval shorter than one second sweeps once a second.
func (s *Store) StartExpirySweep(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("candidate: sweep interval must be positive, got %s", interval)
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.SweepExpired); err != nil {
		return err
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
