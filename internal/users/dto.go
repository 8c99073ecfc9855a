package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/captionly/captionly-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits credentials and tokens.
type UserDTO struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	EmailVerified         bool       `json:"email_verified"`
	SubscriptionPaid      bool       `json:"subscription_paid"`
	SubscriptionPlanID    *string    `json:"subscription_plan_id,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email              string
	PasswordHash       string
	VerificationToken  *string
	VerificationSentAt *time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                    u.ID,
		Email:                 u.Email,
		EmailVerified:         u.EmailVerified,
		SubscriptionPaid:      u.SubscriptionPaid,
		SubscriptionPlanID:    u.SubscriptionPlanID,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		LastLoginAt:           u.LastLoginAt,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:                 uuid.New(),
		Email:              c.Email,
		PasswordHash:       c.PasswordHash,
		VerificationToken:  c.VerificationToken,
		VerificationSentAt: c.VerificationSentAt,
	}
}
