package controllers

import (
	"net/http"

	"github.com/captionly/captionly-backend/api/responses"
	"github.com/captionly/captionly-backend/api/validators"
	"github.com/captionly/captionly-backend/internal/generation"
	"github.com/captionly/captionly-backend/pkg/logger"
)

// GenerateRequest carries the keywords and target platforms for one run.
type GenerateRequest struct {
	Keywords  []string `json:"keywords" validate:"required,min=1,max=5,dive,required"`
	Platforms []string `json:"platforms" validate:"required,min=1,dive,required"`
}

// Generate runs the gated caption generation flow. A quota denial is a 200
// with allowed=false and the remaining headroom, the client decides what to
// show.
func Generate(svc generation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body GenerateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), userID, generation.GenerateInput{
			Keywords:  body.Keywords,
			Platforms: body.Platforms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
