package middleware

import (
	"net/http"
	"strings"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/controller"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/core/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	secret string
}

func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: secret}
}

// AuthMiddleware validates the bearer token and stores its claims under constants.ContextTokenData
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "Missing authorization header")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrInvalidTokenFormat, "Invalid token format")
			}

			claims, err := utils.ValidateAndParseToken(token, m.secret)
			if err != nil {
				logger.Warn("Middleware:AuthMiddleware:ValidateAndParseToken", "error", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrTokenExpired, "Token expired")
				}
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "Invalid token")
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}
