package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/model"
)

// RequireRole lets a request through when the principal injected by
// JWTAuth holds one of roles (USER or MANAGER).  Anything else, including
// a request that skipped JWTAuth, gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    return requirePrincipal(func(p model.Principal) bool {
        for _, r := range roles {
            if p.Role == r {
                return true
            }
        }
        return false
    })
}

// RequireManager guards operations reserved to managers, such as the
// batch sweep.
func RequireManager() echo.MiddlewareFunc {
    return requirePrincipal(model.Principal.IsManager)
}

func requirePrincipal(allow func(model.Principal) bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if p, ok := PrincipalFrom(c); ok && allow(p) {
                return next(c)
            }
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
    }
}
