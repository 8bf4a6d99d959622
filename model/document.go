package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Document is a file shared with clients. The binary lives in object
// storage, the row only carries metadata and the public URL.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	FileURL       string     `bun:"file_url,notnull" json:"file_url,omitempty"`
	FileType      string     `bun:"file_type" json:"file_type,omitempty"`
	UploadedBy    uuid.UUID  `bun:"uploaded_by,notnull,type:uuid" json:"uploaded_by,omitempty"`
	IsPublic      bool       `bun:"is_public,notnull" json:"is_public"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
