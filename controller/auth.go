package controller

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
)

// AuthController exposes the session endpoints. Each request gets its own
// session manager: the manager models one session lifecycle, the server
// serves many.
type AuthController struct {
	Provider    auth.Provider
	Profiles    auth.Profiles
	Provisioner *auth.Provisioner
	Logger      auth.Logger
	Sink        auth.ActivitySink
}

func (a *AuthController) sessions() *auth.SessionManager {
	return auth.NewSessionManager(a.Provider, a.Profiles).
		WithLogger(a.Logger).
		WithActivitySink(a.Sink)
}

// SignInRequest is the credential payload
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type sessionResponse struct {
	Token   string         `json:"token"`
	Profile *model.Profile `json:"profile"`
}

func (a *AuthController) SignIn(c *fiber.Ctx) error {
	payload := new(SignInRequest)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	state, err := a.sessions().SignIn(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(sessionResponse{
		Token:   state.Token,
		Profile: state.Profile,
	})
}

// SignUpRequest is the registration payload
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(matchesString(r.Password))),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Length(0, 30)),
	)
}

func matchesString(expected string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New("passwords do not match", errors.CategoryValidation)
		}
		return nil
	}
}

type registrationResponse struct {
	Outcome auth.ProvisionOutcome `json:"outcome"`
	Profile *model.Profile        `json:"profile"`
}

func (a *AuthController) SignUp(c *fiber.Ctx) error {
	payload := new(SignUpRequest)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	outcome, profile, err := a.Provisioner.Register(c.UserContext(), payload.Email, payload.Password, auth.ProvisionInput{
		FullName: payload.FullName,
		Phone:    payload.Phone,
	})
	if err != nil {
		return renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(registrationResponse{
		Outcome: outcome,
		Profile: profile,
	})
}

func (a *AuthController) SignOut(c *fiber.Ctx) error {
	token := TokenFromCtx(c)
	if err := a.Provider.SignOut(c.UserContext(), token); err != nil {
		// local semantics hold regardless, report and move on
		a.Logger.Warn("provider sign-out failed", "error", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Session returns the guard-approved profile for the current token. The SPA
// calls this on startup to restore state.
func (a *AuthController) Session(c *fiber.Ctx) error {
	return c.JSON(sessionResponse{
		Token:   TokenFromCtx(c),
		Profile: ProfileFromCtx(c),
	})
}
