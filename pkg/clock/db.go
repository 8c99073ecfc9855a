package clock

import (
	"context"
	"fmt"
	"time"
)

type serverTimeSource interface {
	Now(ctx context.Context) (time.Time, error)
}

// DB reads trusted time from the database server.
type DB struct {
	source serverTimeSource
}

// NewDB wraps a database client exposing the server clock.
func NewDB(source serverTimeSource) *DB {
	return &DB{source: source}
}

func (c *DB) Now(ctx context.Context) (time.Time, error) {
	if c == nil || c.source == nil {
		return time.Time{}, fmt.Errorf("time source not configured")
	}
	now, err := c.source.Now(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading server time: %w", err)
	}
	return now.UTC(), nil
}
