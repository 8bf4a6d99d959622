package controller

import (
	"fmt"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
	"github.com/farca/storefront/repository"
	"github.com/farca/storefront/storage"
)

// DocumentsController manages shared documents. Clients see public rows,
// admins manage everything and own the uploads.
type DocumentsController struct {
	Documents repository.Documents
	Store     storage.ObjectStore
	Logger    auth.Logger
}

// ListPublic is what signed-in clients can read.
func (d *DocumentsController) ListPublic(c *fiber.Ctx) error {
	records, err := d.Documents.ListPublic(c.UserContext())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(records)
}

func (d *DocumentsController) List(c *fiber.Ctx) error {
	records, err := d.Documents.List(c.UserContext())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(records)
}

// DocumentPayload carries the metadata part of an upload
type DocumentPayload struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	IsPublic    bool   `json:"is_public" form:"is_public"`
}

func (r DocumentPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

// Upload stores the binary and creates the metadata row.
func (d *DocumentsController) Upload(c *fiber.Ctx) error {
	admin := ProfileFromCtx(c)

	payload := new(DocumentPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "file is required").
			WithCode(errors.CodeBadRequest))
	}

	file, err := header.Open()
	if err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryInternal, "unable to open upload"))
	}
	defer file.Close()

	// browsers frequently send octet-stream, the extension is more reliable
	contentType := header.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeForKey(header.Filename)
	}

	key := fmt.Sprintf("documents/%d%s", time.Now().UnixNano(), filepath.Ext(header.Filename))
	url, err := d.Store.Upload(c.UserContext(), key, contentType, file)
	if err != nil {
		return renderError(c, err)
	}

	created, err := d.Documents.Create(c.UserContext(), &model.Document{
		ID:          uuid.New(),
		Title:       payload.Title,
		Description: payload.Description,
		FileURL:     url,
		FileType:    contentType,
		UploadedBy:  admin.ID,
		IsPublic:    payload.IsPublic,
	})
	if err != nil {
		// keep storage and rows consistent, drop the orphaned object
		if derr := d.Store.Delete(c.UserContext(), key); derr != nil {
			d.Logger.Warn("orphaned object cleanup failed", "key", key, "error", derr)
		}
		return renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (d *DocumentsController) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	payload := new(DocumentPayload)
	if err := c.BodyParser(payload); err != nil {
		return renderError(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return renderError(c, err)
	}

	record, err := d.Documents.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	record.Title = payload.Title
	record.Description = payload.Description
	record.IsPublic = payload.IsPublic

	updated, err := d.Documents.Update(c.UserContext(), record)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(updated)
}

func (d *DocumentsController) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return renderError(c, err)
	}

	record, err := d.Documents.GetByID(c.UserContext(), id)
	if err != nil {
		return renderError(c, err)
	}

	if err := d.Documents.Delete(c.UserContext(), record); err != nil {
		return renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
