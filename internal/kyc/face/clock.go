package face

import (
	"context"
	"time"
)

// Drive feeds real elapsed time to tick on every interval until ctx is done
// or tick reports there is nothing left to do.
func Drive(ctx context.Context, interval time.Duration, tick func(dt time.Duration) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !tick(dt) {
				return
			}
		}
	}
}
