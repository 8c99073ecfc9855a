package controllers

import (
	"net/http"

	"github.com/captionly/captionly-backend/api/responses"
	"github.com/captionly/captionly-backend/api/validators"
	"github.com/captionly/captionly-backend/internal/subscriptions"
	"github.com/captionly/captionly-backend/pkg/logger"
)

// PurchaseRequest is the opaque purchase-confirmed event from the client.
// The store transaction already settled; only the plan matters here.
type PurchaseRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// SubscriptionCurrent returns the stored entitlement window.
func SubscriptionCurrent(guard subscriptions.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ent, err := guard.Current(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ent)
	}
}

// SubscriptionPurchase records a purchase confirmation and extends the
// entitlement.
func SubscriptionPurchase(guard subscriptions.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body PurchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ent, err := guard.RecordPurchase(r.Context(), userID, body.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ent)
	}
}
