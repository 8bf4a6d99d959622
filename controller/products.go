package controller

import (
	"fmt"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
	"github.com/farca/storefront/repository"
	"github.com/farca/storefront/storage"
)

// ProductsController serves the public catalog and the back-office CRUD
type ProductsController struct {
	Products repository.Products
	Store    storage.ObjectStore
	Logger   auth.Logger
}

// ListPublic is the storefront listing, active products only.
func (p *ProductsController) ListPublic(c *fiber.Ctx) error {
	records, err := p.Products.ListActive(c.UserContext())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(records)
}

// List returns the whole catalog for the back office.
func (p *ProductsController) List(c *fiber.Ctx) error {
	records, err := p.Products.List(c.UserContext())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(records)
}

func (p *ProductsController) Show(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := p.Products.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(record)
}

// ProductPayload is the create/update body
type ProductPayload struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	ImageURL      string  `json:"image_url"`
	StockQuantity int     `json:"stock_quantity"`
	IsActive      *bool   `json:"is_active"`
}

func (r ProductPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Price, validation.Required, validation.Min(0.01)),
		validation.Field(&r.Currency, validation.Length(3, 3), is.CurrencyCode),
		validation.Field(&r.StockQuantity, validation.Min(0)),
		validation.Field(&r.ImageURL, is.URL),
	)
}

func (p *ProductsController) Create(c *fiber.Ctx) error {
	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	record := &model.Product{
		ID:            uuid.New(),
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         payload.Price,
		Currency:      payload.Currency,
		ImageURL:      payload.ImageURL,
		StockQuantity: payload.StockQuantity,
		IsActive:      payload.IsActive == nil || *payload.IsActive,
	}

	created, err := p.Products.Create(c.UserContext(), record)
	if err != nil {
		return renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (p *ProductsController) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	record, err := p.Products.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	record.Name = payload.Name
	record.Description = payload.Description
	record.Price = payload.Price
	if payload.Currency != "" {
		record.Currency = payload.Currency
	}
	if payload.ImageURL != "" {
		record.ImageURL = payload.ImageURL
	}
	record.StockQuantity = payload.StockQuantity
	if payload.IsActive != nil {
		record.IsActive = *payload.IsActive
	}

	updated, err := p.Products.Update(c.UserContext(), record)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}

func (p *ProductsController) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUUID(c, "id")
		if err != nil {
			return renderError(c, err)
		}

		updated, err := p.Products.SetActive(c.UserContext(), id, active)
		if err != nil {
			return renderError(c, err)
		}

		return c.JSON(updated)
	}
}

// UploadImage stores the product image and records its public URL.
func (p *ProductsController) UploadImage(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := p.Products.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "image file is required").
			WithCode(errors.CodeBadRequest))
	}

	file, err := header.Open()
	if err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryInternal, "unable to open upload"))
	}
	defer file.Close()

	key := fmt.Sprintf("products/%s/%d%s", record.ID, time.Now().UnixNano(), filepath.Ext(header.Filename))
	url, err := p.Store.Upload(c.UserContext(), key, header.Header.Get(fiber.HeaderContentType), file)
	if err != nil {
		return renderError(c, err)
	}

	record.ImageURL = url
	updated, err := p.Products.Update(c.UserContext(), record)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}

func (p *ProductsController) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := p.Products.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	if err := p.Products.Delete(c.UserContext(), record); err != nil {
		return renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errors.New("malformed id", errors.CategoryBadInput).
			WithTextCode("INVALID_ID").
			WithCode(errors.CodeBadRequest)
	}
	return id, nil
}
