package labs

import (
	"context"
)

type LabReportRepository interface {
	// Upsert inserts the report or replaces the row with the same id.
	Upsert(ctx context.Context, r *LabReport) error
	GetByID(ctx context.Context, id string) (*LabReport, error)
	ListByUser(ctx context.Context, userID string) ([]*LabReport, error)
}
