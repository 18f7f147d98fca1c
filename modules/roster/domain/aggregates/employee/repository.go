package employee

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
)

type Repository interface {
	// GetActiveViews returns every active employee of the organization with
	// resolved unit names. This is the read side of reconciliation.
	GetActiveViews(ctx context.Context, orgID uuid.UUID) ([]*View, error)

	// FindByNumber and FindByEmail match regardless of active state and
	// return (nil, nil) when nothing matches.
	FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*Employee, error)
	FindByEmail(ctx context.Context, orgID uuid.UUID, email string) (*Employee, error)

	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error

	// DeactivateMissing marks every active employee whose number is not in
	// keep as inactive in one set-based statement, returning how many rows
	// were retired.
	DeactivateMissing(ctx context.Context, orgID uuid.UUID, keep []string) (int64, error)

	// ListActiveByUnit returns active employees attached to a unit at the
	// given level, in stable order. Used by manager inference.
	ListActiveByUnit(ctx context.Context, level orgunit.Level, unitID uuid.UUID) ([]*Employee, error)

	CountActive(ctx context.Context, orgID uuid.UUID) (int64, error)
}
