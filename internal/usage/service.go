// Package usage implements the per-user daily generation quota. Each user
// carries a map of calendar-day buckets; a generation consumes one unit per
// target platform and is denied outright once the day's cap would be
// exceeded.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/captionly/captionly-backend/pkg/clock"
	"github.com/captionly/captionly-backend/pkg/config"
	"github.com/captionly/captionly-backend/pkg/db/models"
	dbtypes "github.com/captionly/captionly-backend/pkg/db/types"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
)

const (
	lockTTL       = 10 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockAttempts  = 20
)

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUsage(ctx context.Context, id uuid.UUID, usage dbtypes.UsageMap) error
}

type userLocker interface {
	UserLockKey(userID string) string
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Decision is the outcome of a quota check. Denial is data, not an error:
// Remaining carries the headroom the client shows in its limit modal.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Date      string `json:"date"`
}

// Service gates generations behind the daily cap.
type Service interface {
	CheckAndConsume(ctx context.Context, userID uuid.UUID, requested int) (Decision, error)
	Remaining(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
	store         userStore
	locker        userLocker
	clock         clock.Clock
	dailyCap      int
	retentionDays int
}

// NewService builds the quota service from the configured cap.
func NewService(store userStore, locker userLocker, clk clock.Clock, cfg config.QuotaConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	if cfg.DailyCap < 1 {
		return nil, fmt.Errorf("daily cap must be at least 1")
	}
	return &service{
		store:         store,
		locker:        locker,
		clock:         clk,
		dailyCap:      cfg.DailyCap,
		retentionDays: cfg.RetentionDays,
	}, nil
}

// CheckAndConsume atomically checks today's bucket against the cap and, when
// there is headroom, consumes the requested units. The read-modify-write runs
// under a per-user lock so concurrent submissions cannot both pass the check.
// Denial writes nothing: requests never partially consume.
func (s *service) CheckAndConsume(ctx context.Context, userID uuid.UUID, requested int) (Decision, error) {
	if requested < 1 {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "requested units must be at least 1")
	}

	key := s.locker.UserLockKey(userID.String())
	if err := s.acquire(ctx, key); err != nil {
		return Decision{}, err
	}
	defer func() {
		_ = s.locker.ReleaseLock(context.WithoutCancel(ctx), key)
	}()

	now, err := s.clock.Now(ctx)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}
	today := clock.DateKey(now)

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user record not found")
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "usage store unavailable")
	}

	consumed := user.APIUsage[today]
	if consumed+requested > s.dailyCap {
		return Decision{
			Allowed:   false,
			Remaining: headroom(s.dailyCap, consumed),
			Date:      today,
		}, nil
	}

	next := s.pruned(user.APIUsage, now)
	next[today] = consumed + requested
	if err := s.store.UpdateUsage(ctx, userID, next); err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "usage store unavailable")
	}

	return Decision{
		Allowed:   true,
		Remaining: headroom(s.dailyCap, consumed+requested),
		Date:      today,
	}, nil
}

// Remaining reports today's headroom without consuming anything.
func (s *service) Remaining(ctx context.Context, userID uuid.UUID) (int, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user record not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "usage store unavailable")
	}

	return headroom(s.dailyCap, user.APIUsage[clock.DateKey(now)]), nil
}

func (s *service) acquire(ctx context.Context, key string) error {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := s.locker.AcquireLock(ctx, key, lockTTL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "usage lock unavailable")
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "usage lock unavailable")
		case <-time.After(lockRetryWait):
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "another request is updating usage for this user")
}

// pruned copies the usage map, dropping buckets older than the retention
// window. The consume write replaces the whole map anyway, so this keeps the
// row from growing one key per active day forever.
func (s *service) pruned(usage dbtypes.UsageMap, now time.Time) dbtypes.UsageMap {
	next := make(dbtypes.UsageMap, len(usage)+1)
	cutoff := ""
	if s.retentionDays > 0 {
		cutoff = clock.DateKey(now.AddDate(0, 0, -s.retentionDays))
	}
	for day, count := range usage {
		if cutoff != "" && day < cutoff {
			continue
		}
		next[day] = count
	}
	return next
}

func headroom(limit, consumed int) int {
	if consumed >= limit {
		return 0
	}
	return limit - consumed
}
