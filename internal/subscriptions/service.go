// Package subscriptions decides whether a user's paid entitlement is active
// and records purchase confirmations. Purchases arrive as opaque events from
// the mobile client after the store transaction settles; this service owns
// only the resulting entitlement window.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/captionly/captionly-backend/pkg/clock"
	"github.com/captionly/captionly-backend/pkg/db/models"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, planID string, startedAt, expiresAt time.Time) error
}

// Entitlement is the stored subscription window.
type Entitlement struct {
	Active    bool       `json:"active"`
	PlanID    *string    `json:"plan_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Guard answers entitlement questions against trusted time.
type Guard interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
	Current(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
	RecordPurchase(ctx context.Context, userID uuid.UUID, planID string) (*Entitlement, error)
}

type guard struct {
	store userStore
	clock clock.Clock
}

// NewGuard builds the subscription guard.
func NewGuard(store userStore, clk clock.Clock) (Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	return &guard{store: store, clock: clk}, nil
}

// IsActive reports whether the entitlement covers the current instant. The
// expiry instant itself is inactive: active means strictly before expiry.
func (g *guard) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	ent, err := g.Current(ctx, userID)
	if err != nil {
		return false, err
	}
	return ent.Active, nil
}

// Current returns the stored entitlement window with Active evaluated now.
func (g *guard) Current(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	now, err := g.clock.Now(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}

	user, err := g.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscription store unavailable")
	}

	ent := &Entitlement{
		PlanID:    user.SubscriptionPlanID,
		StartedAt: user.SubscriptionStartedAt,
		ExpiresAt: user.SubscriptionExpiresAt,
	}
	if user.SubscriptionExpiresAt != nil {
		ent.Active = user.SubscriptionExpiresAt.After(now)
	}
	return ent, nil
}

// RecordPurchase extends the entitlement by the purchased plan's term.
// Renewals stack: an unexpired window anchors the extension at its expiry,
// a lapsed or absent one anchors at now. Buying early never loses time.
func (g *guard) RecordPurchase(ctx context.Context, userID uuid.UUID, planID string) (*Entitlement, error) {
	plan, ok := PlanByID(planID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown subscription plan").WithDetails(map[string]string{"plan_id": planID})
	}

	now, err := g.clock.Now(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trusted time unavailable")
	}

	user, err := g.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscription store unavailable")
	}

	anchor := now
	if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(now) {
		anchor = *user.SubscriptionExpiresAt
	}
	expiresAt := plan.Extend(anchor)

	if err := g.store.UpdateSubscription(ctx, userID, plan.ID, now, expiresAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscription store unavailable")
	}

	return &Entitlement{
		Active:    true,
		PlanID:    &plan.ID,
		StartedAt: &now,
		ExpiresAt: &expiresAt,
	}, nil
}
