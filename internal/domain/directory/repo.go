package directory

import (
	"context"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	// List returns every doctor matching f, ordered by rating then name.
	List(ctx context.Context, f ListFilter) ([]*Doctor, error)
	Update(ctx context.Context, id string, patch *DoctorPatch) (*Doctor, error)
	ReplaceSlots(ctx context.Context, id string, slots []Slot) error
	BulkUpsert(ctx context.Context, doctors []*Doctor) (int, error)
}
