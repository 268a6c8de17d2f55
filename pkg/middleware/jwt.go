package middleware

import (
	"net/http"
	"os"
	"strings"

	"GrievancePortal/internal/auth"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs the cross-cutting echo middleware: panic
// recovery and CORS for the frontend origin.
func SetupMiddleware(e *echo.Echo) {
	origin := os.Getenv("FRONTEND_URL")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{origin},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
}

// Authenticate is the soft verification pass: a valid bearer token
// attaches claims to the context, anything else leaves the request
// unauthenticated and moving on. Public and protected routes share this
// one pass; RequireAuth is the hard gate.
func Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return next(c)
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ValidateJWT(tokenString)
		if err != nil {
			// Invalid or expired token: treat as unauthenticated
			// rather than failing, so public routes stay reachable.
			return next(c)
		}
		c.Set("user", claims)
		return next(c)
	}
}

// RequireAuth rejects requests that the Authenticate pass left without
// an identity.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get("user").(*auth.JWTClaims)
		if !ok || claims == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
		}
		return next(c)
	}
}
