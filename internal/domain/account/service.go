package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

// ErrOAuthUnsupported is returned when user_table predates the OAuth columns.
var ErrOAuthUnsupported = errors.New("oauth linkage is not supported by this schema")

var validRoles = map[string]bool{
	"patient": true,
	"doctor":  true,
}

type Service struct {
	users     UserRepository
	providers ProviderRepository
	insurers  InsurerRepository
	logger    zerolog.Logger
}

func NewService(users UserRepository, providers ProviderRepository, insurers InsurerRepository, logger zerolog.Logger) *Service {
	return &Service{users: users, providers: providers, insurers: insurers, logger: logger}
}

// -- Users --

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return httperr.Invalidf("email_address is required")
	}
	if !strings.Contains(u.Email, "@") {
		return httperr.Invalidf("email_address %q is not an email", u.Email)
	}
	if u.Role == "" {
		u.Role = "patient"
	}
	if !validRoles[u.Role] {
		return httperr.Invalidf("invalid role: %s", u.Role)
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, email string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, httperr.Invalidf("email is required")
	}
	return s.users.GetByEmail(ctx, email)
}

// UpdateUser applies patch to the user found by email, resolving the stored
// key first so a differently cased address still updates the same row.
func (s *Service) UpdateUser(ctx context.Context, email string, patch *UserPatch) (*User, error) {
	existing, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.users.Update(ctx, existing.Email, patch)
}

// UpsertUser resolves the user signing in with link: by provider identity,
// then by email (linking the identity), otherwise a new patient is created.
func (s *Service) UpsertUser(ctx context.Context, link OAuthLink) (*User, error) {
	link.Email = strings.TrimSpace(link.Email)
	if link.Email == "" {
		return nil, httperr.Invalidf("email is required")
	}
	if (link.Provider == "") != (link.ProviderID == "") {
		return nil, httperr.Invalidf("provider and provider_id must be given together")
	}

	if link.Provider != "" {
		u, err := s.users.GetByOAuth(ctx, link.Provider, link.ProviderID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}

	u, err := s.users.GetByEmail(ctx, link.Email)
	switch {
	case err == nil:
		if link.Provider != "" && u.OAuthProviderID == nil {
			if err := s.users.LinkOAuth(ctx, u.Email, link); err != nil {
				if !errors.Is(err, ErrOAuthUnsupported) {
					return nil, err
				}
				s.logger.Warn().Str("email", u.Email).Msg("oauth columns missing, sign-in not linked")
				return u, nil
			}
			return s.users.GetByEmail(ctx, u.Email)
		}
		return u, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}

	nu := &User{Email: link.Email, Role: "patient"}
	if link.FirstName != "" {
		nu.FirstName = &link.FirstName
	}
	if link.LastName != "" {
		nu.LastName = &link.LastName
	}
	if link.Provider != "" {
		nu.OAuthProvider = &link.Provider
		nu.OAuthProviderID = &link.ProviderID
		nu.OAuthEmail = &link.Email
	}
	if err := s.CreateUser(ctx, nu); err != nil {
		return nil, fmt.Errorf("create user on sign-in: %w", err)
	}
	return nu, nil
}

func (s *Service) GetRole(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", httperr.Invalidf("email is required")
	}
	return s.users.GetRole(ctx, email)
}

func (s *Service) SetRole(ctx context.Context, email, role string) error {
	if !validRoles[role] {
		return httperr.Invalidf("invalid role: %s", role)
	}
	existing, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	return s.users.SetRole(ctx, existing.Email, role)
}

// -- Providers --

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.ID == "" {
		return httperr.Invalidf("provider_id is required")
	}
	if p.Name == "" {
		return httperr.Invalidf("provider_name is required")
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id string) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

// -- Insurers --

func (s *Service) CreateInsurer(ctx context.Context, i *Insurer) error {
	if i.ID == "" {
		return httperr.Invalidf("insurer_id is required")
	}
	if i.Name == "" {
		return httperr.Invalidf("insurer_name is required")
	}
	return s.insurers.Create(ctx, i)
}

func (s *Service) GetInsurer(ctx context.Context, id string) (*Insurer, error) {
	return s.insurers.GetByID(ctx, id)
}

func (s *Service) ListInsurers(ctx context.Context, limit, offset int) ([]*Insurer, int, error) {
	return s.insurers.List(ctx, limit, offset)
}
