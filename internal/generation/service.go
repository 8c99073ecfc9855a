// Package generation runs the gated caption flow: validate the request,
// consume quota, call the completion API, and split the reply into
// per-platform descriptions.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/captionly/captionly-backend/internal/usage"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
	"github.com/captionly/captionly-backend/pkg/logger"
	"github.com/captionly/captionly-backend/pkg/metrics"
)

// MaxKeywords bounds the keyword list per request.
const MaxKeywords = 5

// GenerateInput is the validated payload for one generation.
type GenerateInput struct {
	Keywords  []string
	Platforms []string
}

// GenerateResult carries the quota decision and, when allowed, one
// description per requested platform.
type GenerateResult struct {
	Allowed      bool                `json:"allowed"`
	Remaining    int                 `json:"remaining"`
	Descriptions map[Platform]string `json:"descriptions,omitempty"`
}

// Service is the generation entrypoint.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*GenerateResult, error)
}

type service struct {
	quota      usage.Service
	completion CompletionClient
	metrics    *metrics.GenerationMetrics
	logg       *logger.Logger
}

// NewService builds the generation service.
func NewService(quota usage.Service, completion CompletionClient, m *metrics.GenerationMetrics, logg *logger.Logger) (Service, error) {
	if quota == nil {
		return nil, fmt.Errorf("quota service required")
	}
	if completion == nil {
		return nil, fmt.Errorf("completion client required")
	}
	return &service{quota: quota, completion: completion, metrics: m, logg: logg}, nil
}

// Generate consumes one quota unit per requested platform, then produces
// descriptions. A denied quota check short-circuits before the completion
// call and is returned as data, not an error.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*GenerateResult, error) {
	started := time.Now()

	platforms, err := normalizePlatforms(input.Platforms)
	if err != nil {
		return nil, err
	}
	keywords, err := normalizeKeywords(input.Keywords)
	if err != nil {
		return nil, err
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID, len(platforms))
	if err != nil {
		s.metrics.IncGeneration("error")
		return nil, err
	}
	if !decision.Allowed {
		s.metrics.IncGeneration("denied")
		s.metrics.IncQuotaDenial()
		s.info(ctx, "generation denied by daily quota")
		return &GenerateResult{Allowed: false, Remaining: decision.Remaining}, nil
	}

	raw, err := s.completion.Complete(ctx, BuildPrompt(keywords, platforms))
	if err != nil {
		s.metrics.IncGeneration("error")
		s.metrics.ObserveDuration("error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completion api unavailable")
	}

	s.metrics.IncGeneration("allowed")
	s.metrics.ObserveDuration("allowed", time.Since(started))

	return &GenerateResult{
		Allowed:      true,
		Remaining:    decision.Remaining,
		Descriptions: ExtractFields(raw, platforms),
	}, nil
}

func (s *service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func normalizePlatforms(raw []string) ([]Platform, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one platform is required")
	}
	seen := make(map[Platform]struct{}, len(raw))
	platforms := make([]Platform, 0, len(raw))
	for _, name := range raw {
		platform, ok := ParsePlatform(name)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown platform").WithDetails(map[string]string{"platform": name})
		}
		if _, dup := seen[platform]; dup {
			continue
		}
		seen[platform] = struct{}{}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

func normalizeKeywords(raw []string) ([]string, error) {
	keywords := make([]string, 0, len(raw))
	for _, word := range raw {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		keywords = append(keywords, word)
	}
	if len(keywords) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one keyword is required")
	}
	if len(keywords) > MaxKeywords {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d keywords are allowed", MaxKeywords))
	}
	return keywords, nil
}
