package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrderStatus tracks fulfillment bookkeeping. There is no workflow engine
// behind these, admins move orders along by hand.
type OrderStatus = string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is bookkeeping only, payments settle outside the system.
type PaymentStatus = string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is a client purchase
type Order struct {
	bun.BaseModel   `bun:"table:orders,alias:ord"`
	ID              uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ClientID        uuid.UUID     `bun:"client_id,notnull,type:uuid" json:"client_id,omitempty"`
	Client          *Profile      `bun:"rel:belongs-to,join:client_id=id" json:"client,omitempty"`
	TotalAmount     float64       `bun:"total_amount,notnull" json:"total_amount"`
	Currency        string        `bun:"currency,notnull" json:"currency,omitempty"`
	OrderStatus     OrderStatus   `bun:"order_status,notnull" json:"order_status,omitempty"`
	PaymentStatus   PaymentStatus `bun:"payment_status,notnull" json:"payment_status,omitempty"`
	DeliveryAddress string        `bun:"delivery_address" json:"delivery_address,omitempty"`
	Items           []*OrderItem  `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	CreatedAt       *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// OrderItem is a single product line inside an order
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oit"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OrderID       uuid.UUID  `bun:"order_id,notnull,type:uuid" json:"order_id,omitempty"`
	ProductID     uuid.UUID  `bun:"product_id,notnull,type:uuid" json:"product_id,omitempty"`
	Product       *Product   `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
	Quantity      int        `bun:"quantity,notnull" json:"quantity"`
	UnitPrice     float64    `bun:"unit_price,notnull" json:"unit_price"`
	TotalPrice    float64    `bun:"total_price,notnull" json:"total_price"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ValidOrderStatus checks the status against the known enum
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

// ValidPaymentStatus checks the status against the known enum
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}
