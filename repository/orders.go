package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// orderTransitions is the bookkeeping path an order may take. Terminal
// states have no outgoing edges.
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:    {model.OrderConfirmed, model.OrderCancelled},
	model.OrderConfirmed:  {model.OrderProcessing, model.OrderCancelled},
	model.OrderProcessing: {model.OrderShipped, model.OrderCancelled},
	model.OrderShipped:    {model.OrderDelivered},
}

// paymentTransitions mirrors whatever the external payment rail reported.
// Refunds only make sense after a payment settled.
var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentPending: {model.PaymentPaid, model.PaymentFailed},
	model.PaymentFailed:  {model.PaymentPending, model.PaymentPaid},
	model.PaymentPaid:    {model.PaymentRefunded},
}

// ErrOrderTransition is returned when a status update is not on the
// transition table.
var ErrOrderTransition = errors.New("status transition not allowed", errors.CategoryBadInput).
	WithTextCode("INVALID_ORDER_TRANSITION").
	WithCode(errors.CodeBadRequest)

// Orders is the order store
type Orders interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Create(ctx context.Context, record *model.Order) (*model.Order, error)
	List(ctx context.Context) ([]*model.Order, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error)
}

type orders struct {
	repo repository.Repository[*model.Order]
	db   *bun.DB
}

var _ Orders = (*orders)(nil)

// NewOrdersRepository returns a bun-backed order store.
func NewOrdersRepository(db *bun.DB) Orders {
	repo := repository.NewRepository[*model.Order](db, repository.ModelHandlers[*model.Order]{
		NewRecord: func() *model.Order { return &model.Order{} },
		GetID: func(o *model.Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *model.Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
	})

	return &orders{
		repo: repo,
		db:   db,
	}
}

func (r *orders) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	record := &model.Order{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Items").
		Relation("Items.Product").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

// Create persists the order and its items in one transaction. Line totals
// and the order total are recomputed server side, the client never sets
// prices.
func (r *orders) Create(ctx context.Context, record *model.Order) (*model.Order, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Currency == "" {
		record.Currency = model.DefaultCurrency
	}
	if record.OrderStatus == "" {
		record.OrderStatus = model.OrderPending
	}
	if record.PaymentStatus == "" {
		record.PaymentStatus = model.PaymentPending
	}

	total := 0.0
	for _, item := range record.Items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = record.ID
		item.TotalPrice = item.UnitPrice * float64(item.Quantity)
		total += item.TotalPrice
	}
	record.TotalAmount = total

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		if len(record.Items) > 0 {
			if _, err := tx.NewInsert().Model(&record.Items).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *orders) List(ctx context.Context) ([]*model.Order, error) {
	records := []*model.Order{}
	err := r.db.NewSelect().
		Model(&records).
		Relation("Client").
		Relation("Items").
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *orders) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Order, error) {
	records := []*model.Order{}
	err := r.db.NewSelect().
		Model(&records).
		Relation("Items").
		Relation("Items.Product").
		Where("?TableAlias.client_id = ?", clientID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *orders) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(orderTransitions[record.OrderStatus], status) {
		return nil, ErrOrderTransition.
			WithMetadata(map[string]any{"from": record.OrderStatus, "to": status})
	}

	record.OrderStatus = status
	now := time.Now()
	record.UpdatedAt = &now

	return r.repo.Update(ctx, record)
}

func (r *orders) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error) {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(paymentTransitions[record.PaymentStatus], status) {
		return nil, ErrOrderTransition.
			WithMetadata(map[string]any{"from": record.PaymentStatus, "to": status})
	}

	record.PaymentStatus = status
	now := time.Now()
	record.UpdatedAt = &now

	return r.repo.Update(ctx, record)
}

func transitionAllowed(allowed []string, next string) bool {
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}
