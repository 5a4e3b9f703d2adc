package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/casedesk/response"
)

const (
	// ClaimsContextKey is the key used to store claims in context
	ClaimsContextKey = "jwt-claims"
)

// Middleware creates a JWT authentication middleware for API endpoints.
func Middleware(jwtService *JWTService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return response.Unauthorized(c, "missing or malformed authorization header")
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return response.Unauthorized(c, ErrInvalidToken.Error())
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetClaims retrieves JWT claims from context
func GetClaims(c echo.Context) *Claims {
	if claims, ok := c.Get(ClaimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}
