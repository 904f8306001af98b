package claims

import (
	"context"
)

type EOBRepository interface {
	// Upsert merges on (claim_number, user_id). case_status is left alone.
	Upsert(ctx context.Context, r *EOBRecord) error
	GetByClaim(ctx context.Context, claimNumber, userID string) (*EOBRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*EOBRecord, error)
	UpdateCaseStatus(ctx context.Context, claimNumber, userID, status string) error
}
