package account

import (
	"time"

	"gorm.io/datatypes"
)

// User maps to user_table. The email address is the primary key.
type User struct {
	Email             string                        `db:"email_address" json:"email_address"`
	FirstName         *string                       `db:"first_name" json:"first_name,omitempty"`
	LastName          *string                       `db:"last_name" json:"last_name,omitempty"`
	DateOfBirth       *string                       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string                       `db:"gender" json:"gender,omitempty"`
	Phone             *string                       `db:"phone" json:"phone,omitempty"`
	StreetAddress     *string                       `db:"street_address" json:"street_address,omitempty"`
	City              *string                       `db:"city" json:"city,omitempty"`
	State             *string                       `db:"state" json:"state,omitempty"`
	ZipCode           *string                       `db:"zip_code" json:"zip_code,omitempty"`
	ProviderID        *string                       `db:"provider_id" json:"provider_id,omitempty"`
	InsurerID         *string                       `db:"insurer_id" json:"insurer_id,omitempty"`
	InsurancePlanName *string                       `db:"insurance_plan_name" json:"insurance_plan_name,omitempty"`
	MemberID          *string                       `db:"member_id" json:"member_id,omitempty"`
	GroupNumber       *string                       `db:"group_number" json:"group_number,omitempty"`
	Documents         datatypes.JSONSlice[Document] `db:"documents" json:"documents"`
	Role              string                        `db:"role" json:"role"`
	OAuthProvider     *string                       `db:"oauth_provider" json:"oauth_provider,omitempty"`
	OAuthProviderID   *string                       `db:"oauth_provider_id" json:"oauth_provider_id,omitempty"`
	OAuthEmail        *string                       `db:"oauth_email" json:"oauth_email,omitempty"`
	CreatedAt         time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                     `db:"updated_at" json:"updated_at"`
}

// Document is an entry of the user's uploaded document list.
type Document struct {
	Name        string `json:"name"`
	BlobKey     string `json:"blob_key"`
	ContentType string `json:"content_type,omitempty"`
	UploadedAt  string `json:"uploaded_at,omitempty"`
}

// UserPatch carries a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	FirstName         *string     `json:"first_name"`
	LastName          *string     `json:"last_name"`
	DateOfBirth       *string     `json:"date_of_birth"`
	Gender            *string     `json:"gender"`
	Phone             *string     `json:"phone"`
	StreetAddress     *string     `json:"street_address"`
	City              *string     `json:"city"`
	State             *string     `json:"state"`
	ZipCode           *string     `json:"zip_code"`
	ProviderID        *string     `json:"provider_id"`
	InsurerID         *string     `json:"insurer_id"`
	InsurancePlanName *string     `json:"insurance_plan_name"`
	MemberID          *string     `json:"member_id"`
	GroupNumber       *string     `json:"group_number"`
	Documents         *[]Document `json:"documents"`
	OAuthProvider     *string     `json:"oauth_provider"`
	OAuthProviderID   *string     `json:"oauth_provider_id"`
	OAuthEmail        *string     `json:"oauth_email"`
}

// OAuthLink is the identity an external sign-in provider reports.
type OAuthLink struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

// Provider maps to provider_table.
type Provider struct {
	ID        string    `db:"provider_id" json:"provider_id"`
	Name      string    `db:"provider_name" json:"provider_name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Insurer maps to insurer_table.
type Insurer struct {
	ID           string    `db:"insurer_id" json:"insurer_id"`
	Name         string    `db:"insurer_name" json:"insurer_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Website      *string   `db:"website" json:"website,omitempty"`
	PayerID      *string   `db:"payer_id" json:"payer_id,omitempty"`
	AppealsEmail *string   `db:"appeals_email" json:"appeals_email,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
