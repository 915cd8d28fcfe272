package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"street-dispatch/internal/models"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMAuth verifies the bearer token and puts the caller's id and role on the context
// under "userID" and "userRole".
func JWTMAuth(jwtSecretKey string, logger *slog.Logger) echo.MiddlewareFunc {
	config := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.JwtCustomClaims)
		},
		SigningKey:    []byte(jwtSecretKey),
		SigningMethod: jwt.SigningMethodHS256.Alg(),

		SuccessHandler: func(c echo.Context) {
			// "user" is echo-jwt's default context key
			userToken := c.Get("user").(*jwt.Token)
			claims := userToken.Claims.(*models.JwtCustomClaims)

			c.Set("userID", claims.UserID)
			c.Set("userRole", claims.Role)
		},

		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("jwt rejected", slog.String("path", c.Path()), slog.String("error", err.Error()))

			switch {
			case errors.Is(err, echojwt.ErrJWTMissing):
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or malformed JWT"})
			case errors.Is(err, jwt.ErrTokenMalformed):
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token is malformed"})
			case errors.Is(err, jwt.ErrTokenExpired):
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token has expired"})
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid token signature"})
			}
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid or expired JWT"})
		},
	}
	return echojwt.WithConfig(config)
}

// RoleRequired lets the request through only when the authenticated caller holds one
// of roles. It must run after JWTMAuth.
func RoleRequired(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("userRole").(models.Role)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "This action requires a " + string(roles[0]) + " account"})
		}
	}
}
