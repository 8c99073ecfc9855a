package models

import (
	"time"

	dbtypes "github.com/captionly/captionly-backend/pkg/db/types"
	"github.com/google/uuid"
)

// User is the canonical per-user record: identity, verification state, the
// daily usage map, and the denormalized subscription fields.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email         string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	EmailVerified bool      `gorm:"column:email_verified;not null;default:false"`

	VerificationToken  *string    `gorm:"column:verification_token"`
	VerificationSentAt *time.Time `gorm:"column:verification_sent_at"`
	ResetToken         *string    `gorm:"column:reset_token"`
	ResetTokenExpires  *time.Time `gorm:"column:reset_token_expires_at"`

	// Cache of the entitlement check as of the last login, not a source of truth.
	SubscriptionPaid      bool       `gorm:"column:subscription_paid;not null;default:false"`
	SubscriptionPlanID    *string    `gorm:"column:subscription_plan_id"`
	SubscriptionStartedAt *time.Time `gorm:"column:subscription_started_at"`
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at"`

	APIUsage dbtypes.UsageMap `gorm:"column:api_usage;type:jsonb;not null;default:'{}'"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
