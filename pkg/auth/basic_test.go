package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuth_Authenticate(t *testing.T) {
	auth := NewBasicAuth(map[string]string{"agent1": "s3cret"})

	tests := []struct {
		name         string
		setAuth      func(r *http.Request)
		expectedUser string
		expectedErr  error
	}{
		{
			name:         "valid credentials",
			setAuth:      func(r *http.Request) { r.SetBasicAuth("agent1", "s3cret") },
			expectedUser: "agent1",
		},
		{
			name:        "wrong password",
			setAuth:     func(r *http.Request) { r.SetBasicAuth("agent1", "nope") },
			expectedErr: ErrInvalidCredentials,
		},
		{
			name:        "unknown user",
			setAuth:     func(r *http.Request) { r.SetBasicAuth("ghost", "s3cret") },
			expectedErr: ErrInvalidCredentials,
		},
		{
			name:        "bearer token is not basic auth",
			setAuth:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			expectedErr: ErrMissingCredentials,
		},
		{
			name:        "no header",
			setAuth:     func(r *http.Request) {},
			expectedErr: ErrMissingCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			tt.setAuth(req)

			user, err := auth.Authenticate(req)

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expectedUser, user)
		})
	}
}

func TestBasicAuth_Middleware(t *testing.T) {
	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("disabled passes everything", func(t *testing.T) {
		h := NewBasicAuth(nil).Middleware(next)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	h := NewBasicAuth(map[string]string{"agent1": "s3cret"}).Middleware(next, "/health")

	t.Run("rejects anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("public path needs no credentials", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("puts the user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.SetBasicAuth("agent1", "s3cret")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "agent1", seenUser)
	})
}
