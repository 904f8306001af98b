package benefits

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/events"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

type Service struct {
	benefits BenefitsRepository
	events   *events.Dispatcher
	logger   zerolog.Logger
}

func NewService(benefits BenefitsRepository, dispatcher *events.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{benefits: benefits, events: dispatcher, logger: logger}
}

// UpsertBenefits stores a plan, replacing an earlier row with the same plan
// name and policy number. A blank policy number is stored as NULL.
func (s *Service) UpsertBenefits(ctx context.Context, b *InsuranceBenefits) error {
	b.UserID = strings.TrimSpace(b.UserID)
	b.PlanName = strings.TrimSpace(b.PlanName)
	if b.UserID == "" {
		return httperr.Invalidf("user_id is required")
	}
	if b.PlanName == "" {
		return httperr.Invalidf("plan_name is required")
	}
	if b.PolicyNumber != nil {
		if p := strings.TrimSpace(*b.PolicyNumber); p == "" {
			b.PolicyNumber = nil
		} else {
			b.PolicyNumber = &p
		}
	}
	if b.OutOfPocketMaxIndividual != nil && *b.OutOfPocketMaxIndividual < 0 {
		return httperr.Invalidf("out_of_pocket_max_individual cannot be negative")
	}
	if b.OutOfPocketMaxFamily != nil && *b.OutOfPocketMaxFamily < 0 {
		return httperr.Invalidf("out_of_pocket_max_family cannot be negative")
	}
	for i, svc := range b.Services {
		if strings.TrimSpace(svc.ServiceName) == "" {
			return httperr.Invalidf("services[%d]: service_name is required", i)
		}
	}

	if err := s.benefits.Upsert(ctx, b); err != nil {
		return err
	}
	s.events.Emit(events.New(events.TypeBenefitsUpserted, b.PlanName, b.UserID, map[string]interface{}{
		"benefits_id": b.ID,
	}))
	s.logger.Debug().Int64("benefits_id", b.ID).Str("user_id", b.UserID).Msg("insurance benefits upserted")
	return nil
}

func (s *Service) GetLatest(ctx context.Context, userID string) (*InsuranceBenefits, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	return s.benefits.GetLatestByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, userID string) ([]*InsuranceBenefits, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	return s.benefits.ListByUser(ctx, userID)
}
