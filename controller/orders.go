package controller

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/metrics"
	"github.com/farca/storefront/model"
	"github.com/farca/storefront/repository"
)

// OrdersController serves client order placement and back-office bookkeeping
type OrdersController struct {
	Orders    repository.Orders
	Products  repository.Products
	Logger    auth.Logger
	Collector *metrics.Collector
}

// OrderItemPayload is one line of a new order. Prices are never accepted
// from the client, only product and quantity.
type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (r OrderItemPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required, validation.By(validUUID)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}

// CreateOrderPayload is the order placement body
type CreateOrderPayload struct {
	Items           []OrderItemPayload `json:"items"`
	DeliveryAddress string             `json:"delivery_address"`
}

func (r CreateOrderPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.DeliveryAddress, validation.Length(0, 500)),
	)
}

func validUUID(value any) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid id", errors.CategoryValidation)
	}
	return nil
}

// Create places an order for the signed-in client. Unit prices come from
// the current catalog; inactive products are refused.
func (o *OrdersController) Create(c *fiber.Ctx) error {
	profile := ProfileFromCtx(c)

	payload := new(CreateOrderPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	items := make([]*model.OrderItem, 0, len(payload.Items))
	for _, line := range payload.Items {
		if err := line.Validate(); err != nil {
			return renderError(c, err)
		}

		productID := uuid.MustParse(line.ProductID)
		product, err := o.Products.GetByID(c.UserContext(), productID)
		if err != nil {
			return renderError(c, err)
		}
		if !product.IsActive {
			return renderError(c, errors.New("product is not available", errors.CategoryBadInput).
				WithTextCode("PRODUCT_UNAVAILABLE").
				WithCode(errors.CodeBadRequest).
				WithMetadata(map[string]any{"product_id": product.ID.String()}))
		}

		items = append(items, &model.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}

	created, err := o.Orders.Create(c.UserContext(), &model.Order{
		ClientID:        profile.ID,
		DeliveryAddress: payload.DeliveryAddress,
		Items:           items,
	})
	if err != nil {
		return renderError(c, err)
	}

	if o.Collector != nil {
		o.Collector.RecordOrderCreated()
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListMine returns the signed-in client's orders.
func (o *OrdersController) ListMine(c *fiber.Ctx) error {
	profile := ProfileFromCtx(c)

	records, err := o.Orders.ListByClient(c.UserContext(), profile.ID)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(records)
}

// ShowMine returns one of the client's own orders; someone else's order is
// a 404, not a 403, so order ids cannot be probed.
func (o *OrdersController) ShowMine(c *fiber.Ctx) error {
	profile := ProfileFromCtx(c)

	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := o.Orders.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	if record.ClientID != profile.ID {
		return renderError(c, errors.New("order not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound))
	}

	return c.JSON(record)
}

// List returns every order for the back office.
func (o *OrdersController) List(c *fiber.Ctx) error {
	records, err := o.Orders.List(c.UserContext())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(records)
}

// OrderStatusPayload moves an order along the fulfillment path
type OrderStatusPayload struct {
	Status string `json:"status"`
}

func (r OrderStatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
	)
}

func (o *OrdersController) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	payload := new(OrderStatusPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	if !model.ValidOrderStatus(payload.Status) {
		return renderError(c, errors.New("unknown order status", errors.CategoryBadInput).
			WithTextCode("INVALID_ORDER_STATUS").
			WithCode(errors.CodeBadRequest))
	}

	updated, err := o.Orders.UpdateOrderStatus(c.UserContext(), id, payload.Status)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}

func (o *OrdersController) UpdatePaymentStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	payload := new(OrderStatusPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	if !model.ValidPaymentStatus(payload.Status) {
		return renderError(c, errors.New("unknown payment status", errors.CategoryBadInput).
			WithTextCode("INVALID_PAYMENT_STATUS").
			WithCode(errors.CodeBadRequest))
	}

	updated, err := o.Orders.UpdatePaymentStatus(c.UserContext(), id, payload.Status)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}
