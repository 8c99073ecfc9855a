package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/captionly/captionly-backend/api/middleware"
	"github.com/captionly/captionly-backend/api/responses"
	"github.com/captionly/captionly-backend/internal/usage"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
	"github.com/captionly/captionly-backend/pkg/logger"
)

// UsageRemaining reports today's quota headroom for the authenticated user.
func UsageRemaining(svc usage.Service, dailyCap int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remaining, err := svc.Remaining(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{
			"remaining": remaining,
			"daily_cap": dailyCap,
		})
	}
}

func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
