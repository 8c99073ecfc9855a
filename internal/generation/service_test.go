package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/captionly/captionly-backend/internal/usage"
	pkgerrors "github.com/captionly/captionly-backend/pkg/errors"
)

type fakeQuota struct {
	decision usage.Decision
	err      error
	calls    int
	units    int
}

func (f *fakeQuota) CheckAndConsume(ctx context.Context, userID uuid.UUID, requested int) (usage.Decision, error) {
	f.calls++
	f.units = requested
	return f.decision, f.err
}

func (f *fakeQuota) Remaining(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.decision.Remaining, f.err
}

type fakeCompletion struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func newTestGeneration(t *testing.T, quota *fakeQuota, completion *fakeCompletion) Service {
	t.Helper()
	svc, err := NewService(quota, completion, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGenerateConsumesOneUnitPerPlatform(t *testing.T) {
	quota := &fakeQuota{decision: usage.Decision{Allowed: true, Remaining: 2}}
	completion := &fakeCompletion{reply: "youtube: a\nfacebook: b\ntiktok: c"}
	svc := newTestGeneration(t, quota, completion)

	result, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{
		Keywords:  []string{"coffee", "morning"},
		Platforms: []string{"youtube", "facebook", "tiktok"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if quota.units != 3 {
		t.Fatalf("consumed %d units, want one per platform", quota.units)
	}
	if !result.Allowed || result.Remaining != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Descriptions[PlatformFacebook] != "b" {
		t.Fatalf("descriptions = %v", result.Descriptions)
	}
	if !strings.Contains(completion.prompt, "coffee") {
		t.Fatal("prompt must carry the keywords")
	}
}

func TestGenerateDeniedSkipsCompletion(t *testing.T) {
	quota := &fakeQuota{decision: usage.Decision{Allowed: false, Remaining: 1}}
	completion := &fakeCompletion{}
	svc := newTestGeneration(t, quota, completion)

	result, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{
		Keywords:  []string{"coffee"},
		Platforms: []string{"youtube", "tiktok"},
	})
	if err != nil {
		t.Fatalf("denial must not be an error: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected a denied result")
	}
	if result.Remaining != 1 {
		t.Fatalf("remaining = %d", result.Remaining)
	}
	if completion.calls != 0 {
		t.Fatal("denied request must never reach the completion api")
	}
}

func TestGenerateValidation(t *testing.T) {
	quota := &fakeQuota{decision: usage.Decision{Allowed: true, Remaining: 4}}
	svc := newTestGeneration(t, quota, &fakeCompletion{reply: "x"})
	ctx := context.Background()
	id := uuid.New()

	cases := []struct {
		name  string
		input GenerateInput
	}{
		{"no platforms", GenerateInput{Keywords: []string{"a"}}},
		{"unknown platform", GenerateInput{Keywords: []string{"a"}, Platforms: []string{"myspace"}}},
		{"no keywords", GenerateInput{Platforms: []string{"youtube"}}},
		{"blank keywords", GenerateInput{Keywords: []string{" ", ""}, Platforms: []string{"youtube"}}},
		{"too many keywords", GenerateInput{Keywords: []string{"a", "b", "c", "d", "e", "f"}, Platforms: []string{"youtube"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(ctx, id, tc.input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if quota.calls != 0 {
		t.Fatal("invalid input must not consume quota")
	}
}

func TestGenerateDuplicatePlatformsCollapse(t *testing.T) {
	quota := &fakeQuota{decision: usage.Decision{Allowed: true, Remaining: 3}}
	completion := &fakeCompletion{reply: "whole text"}
	svc := newTestGeneration(t, quota, completion)

	result, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{
		Keywords:  []string{"coffee"},
		Platforms: []string{"youtube", "YouTube", "youtube"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if quota.units != 1 {
		t.Fatalf("consumed %d units, duplicates must collapse", quota.units)
	}
	if result.Descriptions[PlatformYouTube] != "whole text" {
		t.Fatal("single effective platform gets the raw reply")
	}
}

func TestGenerateCompletionFailure(t *testing.T) {
	quota := &fakeQuota{decision: usage.Decision{Allowed: true, Remaining: 4}}
	completion := &fakeCompletion{err: errors.New("upstream 500")}
	svc := newTestGeneration(t, quota, completion)

	_, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{
		Keywords:  []string{"coffee"},
		Platforms: []string{"youtube"},
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGenerateQuotaFailureFailsClosed(t *testing.T) {
	quota := &fakeQuota{err: pkgerrors.New(pkgerrors.CodeDependency, "usage store unavailable")}
	completion := &fakeCompletion{reply: "x"}
	svc := newTestGeneration(t, quota, completion)

	_, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{
		Keywords:  []string{"coffee"},
		Platforms: []string{"youtube"},
	})
	if err == nil {
		t.Fatal("quota failure must fail the request")
	}
	if completion.calls != 0 {
		t.Fatal("quota failure must not reach the completion api")
	}
}
