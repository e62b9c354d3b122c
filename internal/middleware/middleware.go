package middleware

import (
	"strings"

	"greenbite/domain"
	"greenbite/internal/api/presenters"
	"greenbite/pkg/jwt"
	"greenbite/pkg/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
	}

	middleware struct {
		userService user.UserService
	}
)

// NewMiddleware builds the shared middlewares. userService may be nil, in
// which case profiles are not synced from token claims.
func NewMiddleware(userService user.UserService) Middleware {
	return &middleware{userService: userService}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	})
}

// AuthMiddleware accepts a bearer token, or a token query parameter for
// clients such as EventSource that cannot set headers.
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, domain.ErrTokenNotFound)
		}

		identity, err := jwtService.GetIdentityByToken(token)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
		}

		if m.userService != nil {
			if err := m.userService.SyncProfile(c.Context(), identity); err != nil {
				log.Warnf("auth: %v", err)
			}
		}

		c.Locals("user_id", identity.UserID)
		c.Locals("role", identity.Role)
		return c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
