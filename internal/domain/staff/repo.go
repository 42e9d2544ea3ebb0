package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, sr *StaffRole) error
	GetByID(ctx context.Context, id uuid.UUID) (*StaffRole, error)
	// GetByPersonID returns the active role held by the given person,
	// preferring the most recently created one when several exist.
	GetByPersonID(ctx context.Context, personID uuid.UUID) (*StaffRole, error)
	List(ctx context.Context, role string, limit, offset int) ([]*StaffRole, int, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}
