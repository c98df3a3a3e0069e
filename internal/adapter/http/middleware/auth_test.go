package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/blockpay/internal/adapter/identity"
	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/auth"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Minute)
	expired := auth.NewJWTManager("test-secret", -time.Minute)

	user := &domain.User{ID: "user-a", Email: "alice@example.com"}
	valid, err := jwtManager.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stale, err := expired.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name   string
		header string
		status int
		reason string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "missing_token"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "missing_token"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "invalid_token"},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, "expired_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewWithRegisterer(prometheus.NewRegistry())

			var seen *domain.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = identity.FromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			AuthMiddleware(jwtManager, m)(next).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.status == http.StatusOK {
				if seen == nil || seen.UserID != "user-a" {
					t.Fatalf("expected identity on context, got %+v", seen)
				}
				return
			}
			if seen != nil {
				t.Fatalf("next handler must not run")
			}
			if got := testutil.ToFloat64(m.AuthFailures.WithLabelValues(tt.reason)); got != 1 {
				t.Fatalf("expected one %s failure, got %v", tt.reason, got)
			}
		})
	}
}
