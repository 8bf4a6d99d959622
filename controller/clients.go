package controller

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
	"github.com/farca/storefront/repository"
)

// ClientsController is the back-office view over profiles. Deleting a
// client is a status transition, the row stays for order history.
type ClientsController struct {
	Profiles     repository.Profiles
	StateMachine auth.ProfileStateMachine
	Logger       auth.Logger
}

func (cc *ClientsController) List(c *fiber.Ctx) error {
	filter := repository.ProfileFilter{
		Status: c.Query("status"),
		Role:   c.Query("role"),
		Search: c.Query("q"),
	}

	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		return renderError(c, errors.New("unknown profile status", errors.CategoryBadInput).
			WithTextCode("INVALID_STATUS").
			WithCode(errors.CodeBadRequest))
	}

	records, err := cc.Profiles.List(c.UserContext(), filter)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(records)
}

func (cc *ClientsController) Show(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := cc.Profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(record)
}

// StatusPayload is the admin status change body
type StatusPayload struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (r StatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

// UpdateStatus runs the profile state machine for an admin actor.
func (cc *ClientsController) UpdateStatus(c *fiber.Ctx) error {
	admin := ProfileFromCtx(c)

	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	payload := new(StatusPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	record, err := cc.Profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	opts := []auth.TransitionOption{}
	if payload.Reason != "" {
		opts = append(opts, auth.WithTransitionReason(payload.Reason))
	}

	updated, err := cc.StateMachine.Transition(
		c.UserContext(),
		auth.ActorRef{ID: admin.ID.String(), Type: "admin"},
		record,
		payload.Status,
		opts...,
	)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}

// Delete soft deletes the client through the state machine.
func (cc *ClientsController) Delete(c *fiber.Ctx) error {
	admin := ProfileFromCtx(c)

	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := cc.Profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	if _, err := cc.StateMachine.Transition(
		c.UserContext(),
		auth.ActorRef{ID: admin.ID.String(), Type: "admin"},
		record,
		model.StatusDeleted,
	); err != nil {
		return renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
