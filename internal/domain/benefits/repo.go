package benefits

import (
	"context"
)

type BenefitsRepository interface {
	// Upsert merges on the plan's natural key and fills in ID and timestamps.
	Upsert(ctx context.Context, b *InsuranceBenefits) error
	GetLatestByUser(ctx context.Context, userID string) (*InsuranceBenefits, error)
	ListByUser(ctx context.Context, userID string) ([]*InsuranceBenefits, error)
}
