package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func tokenRoles() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			switch token {
			case "admin-token":
				return &domain.AuthContext{Subject: "ops", Role: domain.RoleAdmin}, nil
			case "viewer-token":
				return &domain.AuthContext{Subject: "dashboard", Role: domain.RoleViewer}, nil
			case "expired-token":
				return nil, domain.ErrTokenExpired
			}
			return nil, domain.ErrTokenInvalid
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := extractBearerToken(req); got != tt.want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	m := NewAuthMiddleware(nil)
	if m.Enabled() {
		t.Fatal("expected middleware to be disabled")
	}

	rr := httptest.NewRecorder()
	m.Authenticate(m.RequireAdmin(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/clean-db", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	m := NewAuthMiddleware(tokenRoles())

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing", "", http.StatusUnauthorized, "missing authorization token"},
		{"expired", "Bearer expired-token", http.StatusUnauthorized, "token expired"},
		{"invalid", "Bearer garbage", http.StatusUnauthorized, "invalid token"},
		{"viewer", "Bearer viewer-token", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCtx *domain.AuthContext
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCtx = GetAuthContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			m.Authenticate(next).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.message != "" {
				if msg := errorMessage(t, rr); msg != tt.message {
					t.Errorf("expected %q, got %q", tt.message, msg)
				}
				return
			}
			if gotCtx == nil || gotCtx.Subject != "dashboard" {
				t.Errorf("expected auth context for dashboard, got %+v", gotCtx)
			}
		})
	}
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	m := NewAuthMiddleware(tokenRoles())
	h := m.Authenticate(m.RequireAdmin(okHandler()))

	tests := []struct {
		token  string
		status int
	}{
		{"admin-token", http.StatusOK},
		{"viewer-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tt.token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.token, tt.status, rr.Code)
		}
	}

	// Without Authenticate in front there is no auth context.
	rr := httptest.NewRecorder()
	m.RequireAdmin(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestGetAuthContext_Missing(t *testing.T) {
	if GetAuthContext(context.Background()) != nil {
		t.Error("expected nil auth context")
	}
}

func TestServer_AdminRoutesRequireToken(t *testing.T) {
	d := newTestDeps(t)
	cfg := DefaultConfig()
	cfg.LogDir = d.logDir
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(cfg, Services{
		TicketSync:  d.tickets,
		Documents:   d.documents,
		Checkpoints: d.checkpoints,
		Collections: d.collections,
		Auth:        tokenRoles(),
	}, d.db)

	ran := false
	d.tickets.runFn = func(ctx context.Context) *domain.SyncOutcome {
		ran = true
		return &domain.SyncOutcome{Success: true}
	}

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/sync-tickets", nil))
	if rr.Code != http.StatusUnauthorized || ran {
		t.Fatalf("expected 401 without running sync, got %d (ran=%v)", rr.Code, ran)
	}

	req := httptest.NewRequest(http.MethodPost, "/sync-tickets", nil)
	req.Header.Set("Authorization", "Bearer viewer-token")
	if rr = serve(s, req); rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sync-tickets", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	if rr = serve(s, req); rr.Code != http.StatusOK || !ran {
		t.Errorf("expected admin sync to run, got %d", rr.Code)
	}

	// Reads stay open.
	if rr = serve(s, httptest.NewRequest(http.MethodGet, "/list-collections", nil)); rr.Code != http.StatusOK {
		t.Errorf("expected open read, got %d", rr.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	for _, want := range []string{"method=GET", "path=/health", "status=418"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRecoveryMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}
