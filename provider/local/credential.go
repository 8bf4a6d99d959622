package local

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is the provider-side identity record. The application never
// reads this table directly; profiles reference it through the user id.
type Credential struct {
	bun.BaseModel  `bun:"table:credentials,alias:crd"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Credentials is the store contract the provider needs
type Credentials interface {
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	Create(ctx context.Context, record *Credential) (*Credential, error)
	TrackAttemptedLogin(ctx context.Context, record *Credential) error
	TrackSuccessfulLogin(ctx context.Context, record *Credential) error
}

type credentials struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

// NewCredentialsRepository returns a bun-backed credentials store.
func NewCredentialsRepository(db *bun.DB) Credentials {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (r *credentials) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	record := &Credential{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(strings.ToLower(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (r *credentials) Create(ctx context.Context, record *Credential) (*Credential, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
	return r.Repository.Create(ctx, record)
}

func (r *credentials) TrackAttemptedLogin(ctx context.Context, record *Credential) error {
	now := time.Now()
	_, err := r.db.NewRaw(`
		UPDATE "credentials" AS "crd"
		SET
			"login_attempts" = "crd"."login_attempts" + 1,
			"login_attempt_at" = ?
		WHERE ("crd".id = ?);
	`, now, record.ID).Exec(ctx)

	return err
}

func (r *credentials) TrackSuccessfulLogin(ctx context.Context, record *Credential) error {
	loggedInAt := time.Now()
	_, err := r.db.NewRaw(`
		UPDATE "credentials" AS "crd"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE ("crd".id = ?);
	`, loggedInAt, record.ID).Exec(ctx)

	return err
}
