package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/identikit/identity-api/internal/api/middleware"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: a non-empty subject
// proves the middleware ran and the token carried an identity.
func ctxClaims(c echo.Context) (userID string, claims jwt.MapClaims, err error) {
	claims, _ = c.Get(middleware.ContextKeyClaims).(jwt.MapClaims)
	userID, _ = c.Get(middleware.ContextKeyUserID).(string)
	if claims == nil || userID == "" {
		return "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, claims, nil
}
