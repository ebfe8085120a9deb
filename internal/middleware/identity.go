package middleware

// identity.go attaches an optional user identity to the request.  The
// reservation subsystem does not authenticate users itself — that is an
// external collaborator — but when a valid Bearer token is presented,
// its subject is recorded so holds and orders can be attributed to the
// user.  Requests without a token proceed as guests; requests with an
// invalid token are rejected.

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// OptionalIdentity returns a middleware that parses a Bearer access
// token when one is present and stores the numeric subject claim under
// "user_id" in the context.  With an empty secret the middleware is a
// pass-through (identity disabled).
func OptionalIdentity(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if secret == "" {
                return next(c)
            }
            auth := c.Request().Header.Get("Authorization")
            if auth == "" {
                return next(c) // guest
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "malformed authorization header"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            if uid := userIDFromClaims(claims); uid != nil {
                c.Set("user_id", uid)
            }
            return next(c)
        }
    }
}

// userIDFromClaims pulls a numeric user id from the sub or user_id
// claim.  Tokens carry the subject as a string; non-numeric subjects
// are ignored rather than rejected.
func userIDFromClaims(claims jwt.MapClaims) *uint64 {
    for _, key := range []string{"sub", "user_id"} {
        switch v := claims[key].(type) {
        case string:
            if n, err := strconv.ParseUint(v, 10, 64); err == nil {
                return &n
            }
        case float64:
            if v >= 0 {
                n := uint64(v)
                return &n
            }
        }
    }
    return nil
}
