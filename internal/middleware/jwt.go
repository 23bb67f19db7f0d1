package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/service"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

const (
	localPrincipal  = "principal"
	localClaims     = "session_claims"
	localAuthReject = "auth_rejection"
)

// Authenticate resolves the bearer token into a principal. With optional set,
// a missing or unverifiable token leaves the caller anonymous and the reason is
// kept for RequireAction; otherwise it is rejected with 401.
func Authenticate(verifier service.TokenVerifier, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, claims, reason := resolveCaller(c, verifier)
		if reason != "" {
			if !optional {
				return utils.SendError(c, fiber.StatusUnauthorized, reason)
			}
			c.Locals(localPrincipal, authz.Anonymous())
			c.Locals(localAuthReject, reason)
			return c.Next()
		}

		c.Locals(localPrincipal, principal)
		c.Locals(localClaims, claims)
		c.Locals("user_id", principal.UserID)
		c.Locals("user_role", principal.Role.String())

		return c.Next()
	}
}

func resolveCaller(c *fiber.Ctx, verifier service.TokenVerifier) (authz.Principal, service.SessionClaims, string) {
	tokenString, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return authz.Anonymous(), service.SessionClaims{}, err.Error()
	}
	if tokenString == "" {
		return authz.Anonymous(), service.SessionClaims{}, "authorization header missing"
	}

	claims, err := verifier.Verify(c.UserContext(), tokenString)
	if err != nil {
		if errors.Is(err, service.ErrTokenRevoked) {
			return authz.Anonymous(), service.SessionClaims{}, "session has been logged out"
		}
		return authz.Anonymous(), service.SessionClaims{}, "invalid token"
	}

	principal := claims.Principal()
	if !principal.Authenticated() {
		return authz.Anonymous(), service.SessionClaims{}, "invalid token claims"
	}
	return principal, claims, ""
}

// PrincipalFrom returns the caller bound by Authenticate, or the anonymous principal.
func PrincipalFrom(c *fiber.Ctx) authz.Principal {
	if principal, ok := c.Locals(localPrincipal).(authz.Principal); ok {
		return principal
	}
	return authz.Anonymous()
}

// rejectionFrom returns why an optional Authenticate fell back to anonymous.
// A request that simply carried no token reports nothing.
func rejectionFrom(c *fiber.Ctx) string {
	reason, _ := c.Locals(localAuthReject).(string)
	if reason == "authorization header missing" {
		return ""
	}
	return reason
}

// ClaimsFrom returns the verified session claims of the request.
func ClaimsFrom(c *fiber.Ctx) (service.SessionClaims, bool) {
	claims, ok := c.Locals(localClaims).(service.SessionClaims)
	return claims, ok
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}

	const bearer = "bearer "
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}
