package repository

import (
	"context"
	"strings"
	"time"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileFilter narrows admin profile listings
type ProfileFilter struct {
	Status model.ProfileStatus
	Role   model.ProfileRole
	// Search matches against full name and email, case insensitive
	Search string
}

// Profiles is the profile store. It satisfies auth.Profiles plus the
// lookup and listing surface the admin controllers need.
type Profiles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Create(ctx context.Context, record *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, record *model.Profile) (*model.Profile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProfileStatus) (*model.Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]*model.Profile, error)
}

type profiles struct {
	repo repository.Repository[*model.Profile]
	db   *bun.DB
}

var _ Profiles = (*profiles)(nil)

// NewProfilesRepository returns a bun-backed profile store.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*model.Profile](db, repository.ModelHandlers[*model.Profile]{
		NewRecord: func() *model.Profile { return &model.Profile{} },
		GetID: func(p *model.Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *model.Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{
		repo: repo,
		db:   db,
	}
}

func (r *profiles) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.repo.GetByID(ctx, id.String())
}

func (r *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	record := &model.Profile{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}

	return record, nil
}

func (r *profiles) Create(ctx context.Context, record *model.Profile) (*model.Profile, error) {
	record.EnsureStatus()
	if record.Role == "" {
		record.Role = model.RoleClient
	}
	return r.repo.Create(ctx, record)
}

func (r *profiles) Update(ctx context.Context, record *model.Profile) (*model.Profile, error) {
	return r.repo.Update(ctx, record)
}

func (r *profiles) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProfileStatus) (*model.Profile, error) {
	if !model.ValidStatus(status) {
		return nil, errors.New("unknown profile status", errors.CategoryBadInput).
			WithTextCode("INVALID_STATUS").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"status": status})
	}

	now := time.Now()
	return r.repo.Update(ctx, &model.Profile{
		ID:        id,
		Status:    status,
		UpdatedAt: &now,
	}, repository.UpdateSkipZeroValues())
}

func (r *profiles) List(ctx context.Context, filter ProfileFilter) ([]*model.Profile, error) {
	records := []*model.Profile{}
	q := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC")

	if filter.Status != "" {
		q.Where("?TableAlias.client_status = ?", filter.Status)
	}
	if filter.Role != "" {
		q.Where("?TableAlias.role = ?", filter.Role)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(?TableAlias.full_name) LIKE ?", like).
				WhereOr("LOWER(?TableAlias.email) LIKE ?", like)
		})
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}
