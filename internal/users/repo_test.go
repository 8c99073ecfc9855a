package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/captionly/captionly-backend/pkg/db/models"
	dbtypes "github.com/captionly/captionly-backend/pkg/db/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Exec("DELETE FROM users").Error
	})
	return conn
}

func createTestUser(t *testing.T, repo *Repository) *models.User {
	t.Helper()

	token := "verify-" + uuid.NewString()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:             uuid.NewString() + "@example.com",
		PasswordHash:      "hash",
		VerificationToken: &token,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	user := createTestUser(t, repo)
	if user.EmailVerified {
		t.Fatal("new user must start unverified")
	}
	if user.SubscriptionPaid {
		t.Fatal("new user must start unpaid")
	}

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("find by email returned %s, want %s", byEmail.ID, user.ID)
	}

	byToken, err := repo.FindByVerificationToken(ctx, *user.VerificationToken)
	if err != nil {
		t.Fatalf("find by verification token: %v", err)
	}
	if byToken.ID != user.ID {
		t.Fatalf("find by token returned %s, want %s", byToken.ID, user.ID)
	}

	if _, err := repo.FindByID(ctx, uuid.New()); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestRepositoryUsageWriteIsPartial(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	user := createTestUser(t, repo)

	usage := dbtypes.UsageMap{"2026-08-29": 3}
	if err := repo.UpdateUsage(ctx, user.ID, usage); err != nil {
		t.Fatalf("update usage: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.APIUsage["2026-08-29"] != 3 {
		t.Fatalf("usage map not persisted: %v", got.APIUsage)
	}
	if got.PasswordHash != "hash" {
		t.Fatal("usage write must not touch other columns")
	}
}

func TestRepositorySubscriptionUpdateFlipsPaidFlag(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	user := createTestUser(t, repo)

	started := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	expires := started.AddDate(0, 1, 0)
	if err := repo.UpdateSubscription(ctx, user.ID, "monthly", started, expires); err != nil {
		t.Fatalf("update subscription: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.SubscriptionPaid {
		t.Fatal("paid flag must flip with the purchase write")
	}
	if got.SubscriptionPlanID == nil || *got.SubscriptionPlanID != "monthly" {
		t.Fatalf("plan id = %v", got.SubscriptionPlanID)
	}
	if got.SubscriptionExpiresAt == nil || !got.SubscriptionExpiresAt.Equal(expires) {
		t.Fatalf("expires at = %v, want %v", got.SubscriptionExpiresAt, expires)
	}

	if err := repo.UpdatePaidFlag(ctx, user.ID, false); err != nil {
		t.Fatalf("update paid flag: %v", err)
	}
	got, _ = repo.FindByID(ctx, user.ID)
	if got.SubscriptionPaid {
		t.Fatal("paid flag should have been cleared")
	}
	if got.SubscriptionPlanID == nil {
		t.Fatal("clearing the flag must not erase the subscription record")
	}
}

func TestRepositoryVerificationAndResetLifecycle(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	user := createTestUser(t, repo)

	if err := repo.MarkEmailVerified(ctx, user.ID); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	got, _ := repo.FindByID(ctx, user.ID)
	if !got.EmailVerified || got.VerificationToken != nil {
		t.Fatalf("verification state not cleared: verified=%v token=%v", got.EmailVerified, got.VerificationToken)
	}

	expiry := time.Now().UTC().Add(time.Hour)
	if err := repo.SetResetToken(ctx, user.ID, "reset-token", expiry); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	byReset, err := repo.FindByResetToken(ctx, "reset-token")
	if err != nil {
		t.Fatalf("find by reset token: %v", err)
	}
	if byReset.ID != user.ID {
		t.Fatal("reset token lookup returned wrong user")
	}

	if err := repo.UpdatePassword(ctx, user.ID, "newhash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, _ = repo.FindByID(ctx, user.ID)
	if got.PasswordHash != "newhash" {
		t.Fatal("password hash not replaced")
	}
	if got.ResetToken != nil {
		t.Fatal("reset token must be cleared on password update")
	}
}
