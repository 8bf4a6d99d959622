package repository

import (
	"context"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Documents is the shared-document metadata store
type Documents interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Create(ctx context.Context, record *model.Document) (*model.Document, error)
	Update(ctx context.Context, record *model.Document) (*model.Document, error)
	// ListPublic is what signed-in clients see
	ListPublic(ctx context.Context) ([]*model.Document, error)
	// List returns everything, for the back office
	List(ctx context.Context) ([]*model.Document, error)
	Delete(ctx context.Context, record *model.Document) error
}

type documents struct {
	repo repository.Repository[*model.Document]
	db   *bun.DB
}

var _ Documents = (*documents)(nil)

// NewDocumentsRepository returns a bun-backed document store.
func NewDocumentsRepository(db *bun.DB) Documents {
	repo := repository.NewRepository[*model.Document](db, repository.ModelHandlers[*model.Document]{
		NewRecord: func() *model.Document { return &model.Document{} },
		GetID: func(d *model.Document) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *model.Document, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
	})

	return &documents{
		repo: repo,
		db:   db,
	}
}

func (r *documents) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return r.repo.GetByID(ctx, id.String())
}

func (r *documents) Create(ctx context.Context, record *model.Document) (*model.Document, error) {
	return r.repo.Create(ctx, record)
}

func (r *documents) Update(ctx context.Context, record *model.Document) (*model.Document, error) {
	return r.repo.Update(ctx, record)
}

func (r *documents) ListPublic(ctx context.Context) ([]*model.Document, error) {
	records := []*model.Document{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_public = ?", true).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *documents) List(ctx context.Context) ([]*model.Document, error) {
	records := []*model.Document{}
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *documents) Delete(ctx context.Context, record *model.Document) error {
	return r.repo.Delete(ctx, record)
}
