// Package llm adapts hosted language models to the decision engine. It
// provides the drafting collaborator that produces draft verdicts and the
// checkers behind the model-backed safety layers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Provider errors.
var (
	ErrUnknownProvider = errors.New("unknown model provider")
	ErrMissingAPIKey   = errors.New("model provider api key not set")
	ErrEmptyResponse   = errors.New("model response contained no text")
)

var tracer = otel.Tracer("github.com/JaimeStill/arbiter/internal/llm")

// Provider is a single-turn completion endpoint.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// Credentials authenticate a provider. An empty APIKey falls back to the
// provider's conventional environment variable.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// NewProvider constructs a Provider by name. Tests replace it to avoid
// network calls.
var NewProvider func(providerName, model string, creds Credentials) (Provider, error) = defaultNewProvider

var apiKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

func defaultNewProvider(providerName, model string, creds Credentials) (Provider, error) {
	name := strings.ToLower(providerName)
	if name == "" {
		name = "anthropic"
	}

	env, ok := apiKeyEnv[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	if creds.APIKey == "" {
		creds.APIKey = os.Getenv(env)
	}
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, env)
	}

	switch name {
	case "openai":
		return newOpenAIProvider(model, creds), nil
	case "google":
		return newGoogleProvider(model, creds), nil
	default:
		return newAnthropicProvider(model, creds), nil
	}
}

// Limited wraps a provider with a token-bucket rate limit shared by every
// caller of the returned Provider. Each completion is traced.
func Limited(p Provider, name string, requestsPerSecond float64, burst int) Provider {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedProvider{
		next:    p,
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type limitedProvider struct {
	next    Provider
	name    string
	limiter *rate.Limiter
}

func (p *limitedProvider) Complete(
	ctx context.Context,
	systemPrompt, userPrompt string,
	maxTokens int,
	temperature float64,
) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", p.name),
		attribute.Float64("llm.temperature", temperature),
	))
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit wait")
		return "", fmt.Errorf("rate limit: %w", err)
	}

	out, err := p.next.Complete(ctx, systemPrompt, userPrompt, maxTokens, temperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return out, nil
}

// WithTimeout bounds each completion by d. A non-positive d returns p.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

func (p *timeoutProvider) Complete(
	ctx context.Context,
	systemPrompt, userPrompt string,
	maxTokens int,
	temperature float64,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.Complete(ctx, systemPrompt, userPrompt, maxTokens, temperature)
}

