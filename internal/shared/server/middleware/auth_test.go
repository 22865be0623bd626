package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/auth"
)

func identityEcho() (*gin.Engine, *struct{ id, role string }) {
	gin.SetMode(gin.TestMode)
	captured := &struct{ id, role string }{}
	router := gin.New()
	router.Use(Auth("dev"))
	router.GET("/api/v1/whoami", func(c *gin.Context) {
		captured.id = UserIDFromContext(c)
		captured.role = UserRoleFromContext(c)
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.OPTIONS("/api/v1/candidates", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/candidates", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingIdentity(t *testing.T) {
	router, _ := identityEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthGuestHeader(t *testing.T) {
	router, captured := identityEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if captured.id != "guest:abc" {
		t.Fatalf("unexpected user id: %q", captured.id)
	}
	if captured.role != GuestRole {
		t.Fatalf("unexpected role: %q", captured.role)
	}
}

func TestAuthJWTCarriesRole(t *testing.T) {
	router, captured := identityEcho()

	token, err := auth.SignJWT(auth.Claims{Sub: "user-1", Role: "hiring_manager"})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if captured.id != "user-1" || captured.role != "hiring_manager" {
		t.Fatalf("unexpected identity: %+v", captured)
	}
}

func TestAuthJWTDefaultsRole(t *testing.T) {
	router, captured := identityEcho()

	token, err := auth.SignJWT(auth.Claims{Sub: "user-2"})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if captured.role != "recruiter" {
		t.Fatalf("expected default role recruiter, got %q", captured.role)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	router, _ := identityEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
