package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/captionly/captionly-backend/api/middleware"
	"github.com/captionly/captionly-backend/internal/subscriptions"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
	"github.com/captionly/captionly-backend/pkg/types"
)

type fakeGuard struct {
	ent    *subscriptions.Entitlement
	err    error
	planID string
}

func (f *fakeGuard) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.ent != nil && f.ent.Active, f.err
}

func (f *fakeGuard) Current(ctx context.Context, userID uuid.UUID) (*subscriptions.Entitlement, error) {
	return f.ent, f.err
}

func (f *fakeGuard) RecordPurchase(ctx context.Context, userID uuid.UUID, planID string) (*subscriptions.Entitlement, error) {
	f.planID = planID
	return f.ent, f.err
}

func TestSubscriptionCurrent(t *testing.T) {
	expires := time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC)
	plan := subscriptions.PlanMonthly
	guard := &fakeGuard{ent: &subscriptions.Entitlement{Active: true, PlanID: &plan, ExpiresAt: &expires}}
	handler := SubscriptionCurrent(guard, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["active"] != true || data["plan_id"] != subscriptions.PlanMonthly {
		t.Fatalf("data = %v", data)
	}
}

func TestSubscriptionPurchase(t *testing.T) {
	plan := subscriptions.PlanWeekly
	guard := &fakeGuard{ent: &subscriptions.Entitlement{Active: true, PlanID: &plan}}
	handler := SubscriptionPurchase(guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/purchase", strings.NewReader(`{"plan_id":"weekly"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if guard.planID != "weekly" {
		t.Fatalf("plan id = %q", guard.planID)
	}
}

func TestSubscriptionPurchaseUnknownPlan(t *testing.T) {
	guard := &fakeGuard{err: pkgerrors.New(pkgerrors.CodeValidation, "unknown subscription plan")}
	handler := SubscriptionPurchase(guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/purchase", strings.NewReader(`{"plan_id":"lifetime"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
}
