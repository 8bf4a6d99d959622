package controller

import (
	"strings"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

const (
	localProfileKey = "session.profile"
	localTokenKey   = "session.token"
)

// RequireSession validates the bearer token, loads the profile, and runs
// the status guard. A guard denial terminates the provider session so the
// token does not outlive its refusal, matching the sign-in behavior.
func RequireSession(provider auth.Provider, profiles auth.Profiles, logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return renderError(c, auth.ErrNoSession)
		}

		session, err := provider.SessionFromToken(token)
		if err != nil {
			logger.Debug("session validation failed", "error", err)
			return renderError(c, auth.ErrNoSession)
		}

		uid, err := session.GetUserUUID()
		if err != nil {
			logger.Warn("session carries a malformed user id", "user_id", session.GetUserID())
			return renderError(c, auth.ErrNoSession)
		}

		profile, err := profiles.GetByUserID(c.UserContext(), uid)
		if err != nil && !errors.IsNotFound(err) {
			logger.Error("profile fetch failed", "user_id", uid.String(), "error", err)
			return renderError(c, errors.Wrap(err, errors.CategoryInternal, "unable to load profile"))
		}

		if decision := auth.EvaluateProfile(profile); !decision.Allowed {
			if serr := provider.SignOut(c.UserContext(), token); serr != nil {
				logger.Warn("corrective provider sign-out failed", "error", serr)
			}
			return renderError(c, decision.AuthError())
		}

		c.Locals(localProfileKey, profile)
		c.Locals(localTokenKey, token)

		return c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := ProfileFromCtx(c)
		if !profile.IsAdmin() {
			return renderError(c, errors.New("administrator role required", errors.CategoryAuthz).
				WithTextCode("ADMIN_REQUIRED").
				WithCode(errors.CodeForbidden))
		}
		return c.Next()
	}
}

// ProfileFromCtx returns the guard-approved profile stored by RequireSession.
func ProfileFromCtx(c *fiber.Ctx) *model.Profile {
	profile, _ := c.Locals(localProfileKey).(*model.Profile)
	return profile
}

// TokenFromCtx returns the raw session token stored by RequireSession.
func TokenFromCtx(c *fiber.Ctx) string {
	token, _ := c.Locals(localTokenKey).(string)
	return token
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
