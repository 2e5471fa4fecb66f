package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zoombid/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func genUUID() gopter.Gen {
	return gen.Int64().Map(func(int64) uuid.UUID { return uuid.New() })
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			path := "/" + pathSuffix
			if path == "/" {
				path = "/api/products"
			}

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "PATCH", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(userID uuid.UUID, role string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			token := signToken(t, jwt.MapClaims{
				"user_id": userID.String(),
				"role":    role,
				"exp":     time.Now().Add(-time.Hour).Unix(),
			}, testSecret)

			req := httptest.NewRequest("GET", "/api/notifications", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		genUUID(),
		gen.OneConstOf("user", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensCarryActor(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens expose the caller to handlers", prop.ForAll(
		func(userID uuid.UUID, role string) bool {
			var got domain.Actor
			var found bool
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, found = GetActor(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			token := signToken(t, jwt.MapClaims{
				"user_id": userID.String(),
				"role":    role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			}, testSecret)

			req := httptest.NewRequest("GET", "/api/products", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && found &&
				got.ID == userID && got.Role == domain.Role(role)
		},
		genUUID(),
		gen.OneConstOf("user", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("malformed tokens are rejected", prop.ForAll(
		func(garbage string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/products", nil)
			req.Header.Set("Authorization", "Bearer "+garbage)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_MissingBearerPrefixRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tokens without the Bearer scheme are rejected", prop.ForAll(
		func(userID uuid.UUID, scheme string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			token := signToken(t, jwt.MapClaims{
				"user_id": userID.String(),
				"role":    "user",
				"exp":     time.Now().Add(time.Hour).Unix(),
			}, testSecret)

			header := token
			if scheme != "" {
				header = scheme + " " + token
			}

			req := httptest.NewRequest("GET", "/api/products", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		genUUID(),
		gen.OneConstOf("", "Basic", "bearer", "Token"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_RejectsMalformedIdentity(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"non uuid user id", jwt.MapClaims{"user_id": "42", "role": "user"}},
		{"missing user id", jwt.MapClaims{"role": "user"}},
		{"unknown role", jwt.MapClaims{"user_id": uuid.NewString(), "role": "superuser"}},
		{"missing role", jwt.MapClaims{"user_id": uuid.NewString()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.claims["exp"] = time.Now().Add(time.Hour).Unix()
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/products", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.claims, testSecret))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())
	token := signToken(t, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, "someone-else")

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserID(t *testing.T) {
	_, ok := GetUserID(httptest.NewRequest("GET", "/", nil).Context())
	assert.False(t, ok)

	id := uuid.New()
	ctx := WithActor(httptest.NewRequest("GET", "/", nil).Context(), domain.Actor{ID: id, Role: domain.RoleUser})
	got, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
