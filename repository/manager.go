package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager exposes all repositories behind one handle
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Profiles() Profiles
	Products() Products
	Orders() Orders
	Documents() Documents
}

type mngr struct {
	db        *bun.DB
	profiles  Profiles
	products  Products
	orders    Orders
	documents Documents
}

// NewManager wires every repository over the shared DB handle.
func NewManager(db *bun.DB) Manager {
	return &mngr{
		db:        db,
		profiles:  NewProfilesRepository(db),
		products:  NewProductsRepository(db),
		orders:    NewOrdersRepository(db),
		documents: NewDocumentsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.products == nil {
		return errors.New("repository products should be initialized")
	}

	if m.orders == nil {
		return errors.New("repository orders should be initialized")
	}

	if m.documents == nil {
		return errors.New("repository documents should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

func (m mngr) Products() Products {
	return m.products
}

func (m mngr) Orders() Orders {
	return m.orders
}

func (m mngr) Documents() Documents {
	return m.documents
}
