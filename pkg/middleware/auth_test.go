package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/arbiter/pkg/middleware"
)

type mockVerifier struct {
	verifyFn func(ctx context.Context, raw string) (*oidc.IDToken, error)
}

func (m *mockVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	return m.verifyFn(ctx, raw)
}

func TestAuth(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(_ context.Context, raw string) (*oidc.IDToken, error) {
			if raw == "good-token" {
				return &oidc.IDToken{Subject: "reviewer-7"}, nil
			}
			return nil, errors.New("signature mismatch")
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotSubject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = middleware.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := middleware.Auth(verifier, []string{"/healthz", "/metrics"}, logger)(inner)

	tests := []struct {
		name        string
		path        string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"valid token", "/api/decisions", "Bearer good-token", http.StatusNoContent, "reviewer-7"},
		{"missing header", "/api/decisions", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/decisions", "Basic abc", http.StatusUnauthorized, ""},
		{"rejected token", "/api/decisions", "Bearer forged", http.StatusUnauthorized, ""},
		{"public path", "/healthz", "", http.StatusNoContent, ""},
		{"public prefix", "/metrics/extra", "", http.StatusNoContent, ""},
		{"prefix lookalike", "/metricsx", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotSubject != tt.wantSubject {
				t.Errorf("subject: got %q, want %q", gotSubject, tt.wantSubject)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuthConfigFinalize(t *testing.T) {
	t.Run("defaults public paths", func(t *testing.T) {
		cfg := middleware.AuthConfig{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if len(cfg.PublicPaths) != 3 {
			t.Errorf("public_paths: got %v", cfg.PublicPaths)
		}
	})

	t.Run("enabled requires issuer", func(t *testing.T) {
		cfg := middleware.AuthConfig{Enabled: true, Audience: "arbiter"}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error without issuer")
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_AUTH_ENABLED", "true")
		t.Setenv("TEST_AUTH_ISSUER", "https://login.example.com/tenant/v2.0")
		t.Setenv("TEST_AUTH_AUDIENCE", "api://arbiter")

		cfg := middleware.AuthConfig{}
		env := &middleware.AuthEnv{
			Enabled:  "TEST_AUTH_ENABLED",
			Issuer:   "TEST_AUTH_ISSUER",
			Audience: "TEST_AUTH_AUDIENCE",
		}
		if err := cfg.Finalize(env); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if !cfg.Enabled || cfg.Audience != "api://arbiter" {
			t.Errorf("config: got %+v", cfg)
		}
	})
}

func TestSubject(t *testing.T) {
	if _, ok := middleware.Subject(context.Background()); ok {
		t.Error("empty context should carry no subject")
	}
	ctx := middleware.WithSubject(context.Background(), "alice")
	if s, ok := middleware.Subject(ctx); !ok || s != "alice" {
		t.Errorf("Subject: got %q, %v", s, ok)
	}
}
