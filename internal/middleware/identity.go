package middleware

// identity.go turns identity provider claims into a model.Principal and
// gives handlers and other middleware access to it.

import (
    "fmt"
    "strconv"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/model"
)

const principalKey = "principal"

// principalFromClaims reads sub (numeric string or number), email and
// role.  A missing role means an ordinary user.
func principalFromClaims(cl jwt.MapClaims) (model.Principal, bool) {
    var p model.Principal
    switch v := cl["sub"].(type) {
    case string:
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return p, false
        }
        p.ID = id
    case float64:
        if v < 1 {
            return p, false
        }
        p.ID = uint64(v)
    default:
        return p, false
    }
    p.Email, _ = cl["email"].(string)
    p.Role, _ = cl["role"].(string)
    if p.Role == "" {
        p.Role = model.RoleUser
    }
    return p, true
}

// PrincipalFrom returns the caller injected by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(principalKey).(model.Principal)
    return p, ok
}

// userID returns the caller id for keys, "anon" when unauthenticated.
func userID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok {
        return fmt.Sprint(p.ID)
    }
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
