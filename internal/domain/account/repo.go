package account

import (
	"context"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// GetByEmail tries an exact match first, then a case-insensitive trimmed one.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByOAuth(ctx context.Context, provider, providerID string) (*User, error)
	LinkOAuth(ctx context.Context, email string, link OAuthLink) error
	Update(ctx context.Context, email string, patch *UserPatch) (*User, error)
	GetRole(ctx context.Context, email string) (string, error)
	SetRole(ctx context.Context, email, role string) error
}

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id string) (*Provider, error)
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
}

type InsurerRepository interface {
	Create(ctx context.Context, i *Insurer) error
	GetByID(ctx context.Context, id string) (*Insurer, error)
	List(ctx context.Context, limit, offset int) ([]*Insurer, int, error)
}
