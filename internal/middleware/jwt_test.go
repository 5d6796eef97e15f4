package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/razherana/s5-web-4-carte/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
    t.Helper()
    tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    require.NoError(t, err)
    return tok
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func principalEcho() *echo.Echo {
    e := echo.New()
    e.GET("/me", func(c echo.Context) error {
        p, ok := PrincipalFrom(c)
        if !ok {
            return c.NoContent(http.StatusInternalServerError)
        }
        return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "email": p.Email, "role": p.Role})
    }, JWTAuth(testSecret))
    e.POST("/sync", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        JWTAuth(testSecret), RequireRole(model.RoleManager))
    return e
}

func TestJWTAuth_InjectsPrincipal(t *testing.T) {
    e := principalEcho()
    exp := time.Now().Add(time.Hour).Unix()

    rec := serve(e, http.MethodGet, "/me", signToken(t, testSecret, jwt.MapClaims{
        "sub": "7", "email": "a@b.mg", "role": model.RoleManager, "exp": exp,
    }))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":7,"email":"a@b.mg","role":"MANAGER"}`, rec.Body.String())

    // numeric subject, default role
    rec = serve(e, http.MethodGet, "/me", signToken(t, testSecret, jwt.MapClaims{"sub": 9, "exp": exp}))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":9,"email":"","role":"USER"}`, rec.Body.String())
}

func TestJWTAuth_Rejects(t *testing.T) {
    e := principalEcho()
    exp := time.Now().Add(time.Hour).Unix()

    assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
    assert.Equal(t, http.StatusUnauthorized,
        serve(e, http.MethodGet, "/me", signToken(t, "other", jwt.MapClaims{"sub": "7", "exp": exp})).Code)
    assert.Equal(t, http.StatusUnauthorized,
        serve(e, http.MethodGet, "/me", signToken(t, testSecret, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Minute).Unix()})).Code)
    assert.Equal(t, http.StatusUnauthorized,
        serve(e, http.MethodGet, "/me", signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "exp": exp})).Code)
}

func TestRequireRole(t *testing.T) {
    e := principalEcho()
    exp := time.Now().Add(time.Hour).Unix()

    user := signToken(t, testSecret, jwt.MapClaims{"sub": "1", "role": model.RoleUser, "exp": exp})
    manager := signToken(t, testSecret, jwt.MapClaims{"sub": "2", "role": model.RoleManager, "exp": exp})

    assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/sync", user).Code)
    assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/sync", manager).Code)
}

func TestRequireManager(t *testing.T) {
    e := echo.New()
    e.POST("/reports/sync", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireManager())
    assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/reports/sync", "").Code, "no principal")

    e = echo.New()
    e.POST("/reports/sync", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        JWTAuth(testSecret), RequireManager())
    exp := time.Now().Add(time.Hour).Unix()
    manager := signToken(t, testSecret, jwt.MapClaims{"sub": 2, "role": model.RoleManager, "exp": exp})
    assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/reports/sync", manager).Code)
}
