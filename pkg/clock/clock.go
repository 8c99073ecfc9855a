// Package clock supplies trusted time. Quota buckets and subscription expiry
// must never trust the caller's device clock, so production code reads the
// database server's clock and everything downstream takes time from here.
package clock

import (
	"context"
	"time"
)

// Clock yields the current trusted time. Implementations may be remote and
// can fail; callers treat a failure as "deny" rather than falling back to
// the local clock.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// DateKey formats an instant as the UTC calendar-day bucket key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
