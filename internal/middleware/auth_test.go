package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret"
	testSubject = "8f0c6a1e-0000-4000-8000-000000000002"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role string) Claims {
	return Claims{
		Email:       "parent@example.com",
		Role:        "authenticated",
		AppMetadata: map[string]any{"role": role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newAuthRouter(roles ...string) *gin.Engine {
	router := gin.New()
	group := router.Group("", Auth(testSecret))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": GetSubject(c), "role": GetUserRole(c), "email": GetUserEmail(c)})
	})
	return router
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	expired := validClaims(models.RoleGuardian)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	badSubject := validClaims(models.RoleGuardian)
	badSubject.Subject = "42"

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"valid bearer token", "Bearer " + signToken(t, testSecret, validClaims(models.RoleGuardian)), "", http.StatusOK},
		{"token in query", "", signToken(t, testSecret, validClaims(models.RoleGuardian)), http.StatusOK},
		{"missing token", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", validClaims(models.RoleGuardian)), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), "", http.StatusUnauthorized},
		{"subject is not a uuid", "Bearer " + signToken(t, testSecret, badSubject), "", http.StatusUnauthorized},
	}

	router := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/me"
			if tt.query != "" {
				path += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), testSubject)
				assert.Contains(t, w.Body.String(), `"role":"guardian"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newAuthRouter(models.RoleProprietor)

	for role, status := range map[string]int{
		models.RoleProprietor: http.StatusOK,
		models.RoleGuardian:   http.StatusForbidden,
		"admin":               http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(role)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, role)
	}
}

func TestClaimsSchoolRole(t *testing.T) {
	claims := Claims{Role: models.RoleGuardian, AppMetadata: map[string]any{"role": models.RoleProprietor}}
	assert.Equal(t, models.RoleProprietor, claims.SchoolRole(), "app_metadata wins")

	assert.Equal(t, models.RoleGuardian, (&Claims{Role: models.RoleGuardian}).SchoolRole())
	assert.Empty(t, (&Claims{Role: "authenticated"}).SchoolRole())
}

func TestAuthIgnoresUserMetadataRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newAuthRouter(models.RoleTeacher)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           testSubject,
		"exp":           time.Now().Add(time.Hour).Unix(),
		"role":          "authenticated",
		"app_metadata":  map[string]any{"role": models.RoleGuardian},
		"user_metadata": map[string]any{"role": models.RoleTeacher},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
