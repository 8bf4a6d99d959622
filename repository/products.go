package repository

import (
	"context"
	"time"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Products is the catalog store
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, record *model.Product) (*model.Product, error)
	Update(ctx context.Context, record *model.Product) (*model.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Product, error)
	// ListActive is the public storefront listing
	ListActive(ctx context.Context) ([]*model.Product, error)
	// List returns everything, for the back office
	List(ctx context.Context) ([]*model.Product, error)
	Delete(ctx context.Context, record *model.Product) error
}

type products struct {
	repo repository.Repository[*model.Product]
	db   *bun.DB
}

var _ Products = (*products)(nil)

// NewProductsRepository returns a bun-backed catalog store.
func NewProductsRepository(db *bun.DB) Products {
	repo := repository.NewRepository[*model.Product](db, repository.ModelHandlers[*model.Product]{
		NewRecord: func() *model.Product { return &model.Product{} },
		GetID: func(p *model.Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *model.Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &products{
		repo: repo,
		db:   db,
	}
}

func (r *products) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.repo.GetByID(ctx, id.String())
}

func (r *products) Create(ctx context.Context, record *model.Product) (*model.Product, error) {
	if record.Currency == "" {
		record.Currency = model.DefaultCurrency
	}
	return r.repo.Create(ctx, record)
}

func (r *products) Update(ctx context.Context, record *model.Product) (*model.Product, error) {
	now := time.Now()
	record.UpdatedAt = &now
	return r.repo.Update(ctx, record)
}

func (r *products) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Product, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}

	record.IsActive = active
	now := time.Now()
	record.UpdatedAt = &now

	return r.repo.Update(ctx, record)
}

func (r *products) ListActive(ctx context.Context) ([]*model.Product, error) {
	records := []*model.Product{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_active = ?", true).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *products) List(ctx context.Context) ([]*model.Product, error) {
	records := []*model.Product{}
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *products) Delete(ctx context.Context, record *model.Product) error {
	return r.repo.Delete(ctx, record)
}
