package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Product is a storefront catalog entry
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Price         float64    `bun:"price,notnull" json:"price"`
	Currency      string     `bun:"currency,notnull" json:"currency,omitempty"`
	ImageURL      string     `bun:"image_url" json:"image_url,omitempty"`
	StockQuantity int        `bun:"stock_quantity,notnull" json:"stock_quantity"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// DefaultCurrency is applied when a product or order omits one
const DefaultCurrency = "EUR"
