package changelog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeTypeCreate     ChangeType = "CREATE"
	ChangeTypeUpdate     ChangeType = "UPDATE"
	ChangeTypeDelete     ChangeType = "DELETE"
	ChangeTypeTransfer   ChangeType = "TRANSFER"
	ChangeTypePromotion  ChangeType = "PROMOTION"
	ChangeTypeRetirement ChangeType = "RETIREMENT"
	ChangeTypeRejoining  ChangeType = "REJOINING"
	ChangeTypeImport     ChangeType = "IMPORT"
	ChangeTypeBulkUpdate ChangeType = "BULK_UPDATE"
	ChangeTypeExport     ChangeType = "EXPORT"
)

// Entry is one row of the audit ledger. Entries are append-only: once
// written they are never mutated or deleted.
type Entry struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	EntityType  string
	EntityID    string
	ChangeType  ChangeType
	Field       string
	OldValue    string
	NewValue    string
	Description string
	BatchID     string
	Actor       string
	CreatedAt   time.Time
}

type FindParams struct {
	BatchID    string
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	CreateMany(ctx context.Context, entries []*Entry) error
	List(ctx context.Context, orgID uuid.UUID, params *FindParams) ([]*Entry, error)
}
