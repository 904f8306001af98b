package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"gorm.io/datatypes"

	"github.com/carepilot/carepilot/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct {
	pools   db.PoolSource
	catalog db.CatalogSource
}

func NewUserRepoPG(pools db.PoolSource, catalog db.CatalogSource) UserRepository {
	return &userRepoPG{pools: pools, catalog: catalog}
}

const userCols = `email_address, first_name, last_name, date_of_birth, gender, phone,
	street_address, city, state, zip_code, provider_id, insurer_id,
	insurance_plan_name, member_id, group_number, documents, role, created_at, updated_at`

const userOAuthCols = `, oauth_provider, oauth_provider_id, oauth_email`

func scanUser(row pgx.Row, withOAuth bool) (*User, error) {
	var u User
	dest := []interface{}{&u.Email, &u.FirstName, &u.LastName, &u.DateOfBirth, &u.Gender, &u.Phone,
		&u.StreetAddress, &u.City, &u.State, &u.ZipCode, &u.ProviderID, &u.InsurerID,
		&u.InsurancePlanName, &u.MemberID, &u.GroupNumber, &u.Documents, &u.Role, &u.CreatedAt, &u.UpdatedAt}
	if withOAuth {
		dest = append(dest, &u.OAuthProvider, &u.OAuthProviderID, &u.OAuthEmail)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}

// session returns the connection and the schema capabilities for one call.
func (r *userRepoPG) session(ctx context.Context) (db.Querier, *db.Catalog, error) {
	cat, err := r.catalog.Catalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, nil, err
	}
	return q, cat, nil
}

func selectUsers(cat *db.Catalog) string {
	if cat.SupportsOAuth() {
		return `SELECT ` + userCols + userOAuthCols + ` FROM user_table`
	}
	return `SELECT ` + userCols + ` FROM user_table`
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	q, cat, err := r.session(ctx)
	if err != nil {
		return db.Wrap("create user", err)
	}
	if u.Documents == nil {
		u.Documents = datatypes.JSONSlice[Document]{}
	}

	cols := []string{"email_address", "first_name", "last_name", "date_of_birth", "gender", "phone",
		"street_address", "city", "state", "zip_code", "provider_id", "insurer_id",
		"insurance_plan_name", "member_id", "group_number", "documents", "role"}
	args := []interface{}{u.Email, u.FirstName, u.LastName, u.DateOfBirth, u.Gender, u.Phone,
		u.StreetAddress, u.City, u.State, u.ZipCode, u.ProviderID, u.InsurerID,
		u.InsurancePlanName, u.MemberID, u.GroupNumber, u.Documents, u.Role}

	// OAuth columns are only written when this database has them.
	optional := []struct {
		col string
		val *string
	}{
		{db.ColOAuthProvider, u.OAuthProvider},
		{db.ColOAuthProviderID, u.OAuthProviderID},
		{db.ColOAuthEmail, u.OAuthEmail},
	}
	for _, o := range optional {
		if o.val != nil && cat.HasUserColumn(o.col) {
			cols = append(cols, o.col)
			args = append(args, o.val)
		}
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf(`INSERT INTO user_table (%s) VALUES (%s) RETURNING created_at, updated_at`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return db.Wrap("create user", q.QueryRow(ctx, sql, args...).Scan(&u.CreatedAt, &u.UpdatedAt))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	q, cat, err := r.session(ctx)
	if err != nil {
		return nil, db.Wrap("get user by email", err)
	}
	withOAuth := cat.SupportsOAuth()

	u, err := scanUser(q.QueryRow(ctx, selectUsers(cat)+` WHERE email_address = $1`, email), withOAuth)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, db.Wrap("get user by email", err)
	}

	u, err = scanUser(q.QueryRow(ctx, selectUsers(cat)+`
		WHERE LOWER(TRIM(email_address)) = LOWER(TRIM($1))
		ORDER BY email_address LIMIT 1`, email), withOAuth)
	if err != nil {
		return nil, db.Wrap("get user by email", err)
	}
	return u, nil
}

func (r *userRepoPG) GetByOAuth(ctx context.Context, provider, providerID string) (*User, error) {
	q, cat, err := r.session(ctx)
	if err != nil {
		return nil, db.Wrap("get user by oauth", err)
	}
	if !cat.SupportsOAuth() {
		return nil, db.Wrap("get user by oauth", pgx.ErrNoRows)
	}
	u, err := scanUser(q.QueryRow(ctx, selectUsers(cat)+`
		WHERE oauth_provider = $1 AND oauth_provider_id = $2`, provider, providerID), true)
	if err != nil {
		return nil, db.Wrap("get user by oauth", err)
	}
	return u, nil
}

func (r *userRepoPG) LinkOAuth(ctx context.Context, email string, link OAuthLink) error {
	q, cat, err := r.session(ctx)
	if err != nil {
		return db.Wrap("link oauth", err)
	}
	if !cat.SupportsOAuth() {
		return ErrOAuthUnsupported
	}
	tag, err := q.Exec(ctx, `
		UPDATE user_table SET oauth_provider = $2, oauth_provider_id = $3, oauth_email = $4, updated_at = NOW()
		WHERE email_address = $1`, email, link.Provider, link.ProviderID, link.Email)
	if err != nil {
		return db.Wrap("link oauth", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("link oauth", pgx.ErrNoRows)
	}
	return nil
}

func (r *userRepoPG) Update(ctx context.Context, email string, patch *UserPatch) (*User, error) {
	q, cat, err := r.session(ctx)
	if err != nil {
		return nil, db.Wrap("update user", err)
	}

	b := db.NewUpdate(db.UserTable)
	setIf := func(col string, v *string) {
		// Fields whose column is missing from this schema are dropped.
		if v != nil && cat.HasUserColumn(col) {
			b.Set(col, *v)
		}
	}
	setIf("first_name", patch.FirstName)
	setIf("last_name", patch.LastName)
	setIf("date_of_birth", patch.DateOfBirth)
	setIf("gender", patch.Gender)
	setIf("phone", patch.Phone)
	setIf("street_address", patch.StreetAddress)
	setIf("city", patch.City)
	setIf("state", patch.State)
	setIf("zip_code", patch.ZipCode)
	setIf("provider_id", patch.ProviderID)
	setIf("insurer_id", patch.InsurerID)
	setIf("insurance_plan_name", patch.InsurancePlanName)
	setIf("member_id", patch.MemberID)
	setIf("group_number", patch.GroupNumber)
	setIf(db.ColOAuthProvider, patch.OAuthProvider)
	setIf(db.ColOAuthProviderID, patch.OAuthProviderID)
	setIf(db.ColOAuthEmail, patch.OAuthEmail)
	if patch.Documents != nil {
		b.Set("documents", datatypes.JSONSlice[Document](*patch.Documents))
	}

	sql, args := b.Where("email_address", email)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, db.Wrap("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, db.Wrap("update user", pgx.ErrNoRows)
	}
	u, err := scanUser(q.QueryRow(ctx, selectUsers(cat)+` WHERE email_address = $1`, email), cat.SupportsOAuth())
	if err != nil {
		return nil, db.Wrap("update user", err)
	}
	return u, nil
}

func (r *userRepoPG) GetRole(ctx context.Context, email string) (string, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return "", db.Wrap("get role", err)
	}
	var role string
	err = q.QueryRow(ctx, `
		SELECT role FROM user_table
		WHERE email_address = $1 OR LOWER(TRIM(email_address)) = LOWER(TRIM($1))
		ORDER BY (email_address = $1) DESC LIMIT 1`, email).Scan(&role)
	return role, db.Wrap("get role", err)
}

func (r *userRepoPG) SetRole(ctx context.Context, email, role string) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("set role", err)
	}
	tag, err := q.Exec(ctx, `UPDATE user_table SET role = $2, updated_at = NOW() WHERE email_address = $1`, email, role)
	if err != nil {
		return db.Wrap("set role", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("set role", pgx.ErrNoRows)
	}
	return nil
}

// =========== Provider Repository ===========

type providerRepoPG struct{ pools db.PoolSource }

func NewProviderRepoPG(pools db.PoolSource) ProviderRepository {
	return &providerRepoPG{pools: pools}
}

const providerCols = `provider_id, provider_name, specialty, address, phone, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.Address, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("create provider", err)
	}
	err = q.QueryRow(ctx, `
		INSERT INTO provider_table (provider_id, provider_name, specialty, address, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Specialty, p.Address, p.Phone).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Wrap("create provider", err)
}

func (r *providerRepoPG) GetByID(ctx context.Context, id string) (*Provider, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("get provider", err)
	}
	p, err := scanProvider(q.QueryRow(ctx, `SELECT `+providerCols+` FROM provider_table WHERE provider_id = $1`, id))
	if err != nil {
		return nil, db.Wrap("get provider", err)
	}
	return p, nil
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, 0, db.Wrap("list providers", err)
	}
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM provider_table`).Scan(&total); err != nil {
		return nil, 0, db.Wrap("list providers", err)
	}
	rows, err := q.Query(ctx, `SELECT `+providerCols+` FROM provider_table ORDER BY provider_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Wrap("list providers", err)
	}
	defer rows.Close()
	items := []*Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, db.Wrap("list providers", err)
		}
		items = append(items, p)
	}
	return items, total, db.Wrap("list providers", rows.Err())
}

// =========== Insurer Repository ===========

type insurerRepoPG struct{ pools db.PoolSource }

func NewInsurerRepoPG(pools db.PoolSource) InsurerRepository {
	return &insurerRepoPG{pools: pools}
}

const insurerCols = `insurer_id, insurer_name, phone, website, payer_id, appeals_email, created_at, updated_at`

func scanInsurer(row pgx.Row) (*Insurer, error) {
	var i Insurer
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Website, &i.PayerID, &i.AppealsEmail, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *insurerRepoPG) Create(ctx context.Context, i *Insurer) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("create insurer", err)
	}
	err = q.QueryRow(ctx, `
		INSERT INTO insurer_table (insurer_id, insurer_name, phone, website, payer_id, appeals_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		i.ID, i.Name, i.Phone, i.Website, i.PayerID, i.AppealsEmail).Scan(&i.CreatedAt, &i.UpdatedAt)
	return db.Wrap("create insurer", err)
}

func (r *insurerRepoPG) GetByID(ctx context.Context, id string) (*Insurer, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("get insurer", err)
	}
	i, err := scanInsurer(q.QueryRow(ctx, `SELECT `+insurerCols+` FROM insurer_table WHERE insurer_id = $1`, id))
	if err != nil {
		return nil, db.Wrap("get insurer", err)
	}
	return i, nil
}

func (r *insurerRepoPG) List(ctx context.Context, limit, offset int) ([]*Insurer, int, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, 0, db.Wrap("list insurers", err)
	}
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM insurer_table`).Scan(&total); err != nil {
		return nil, 0, db.Wrap("list insurers", err)
	}
	rows, err := q.Query(ctx, `SELECT `+insurerCols+` FROM insurer_table ORDER BY insurer_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Wrap("list insurers", err)
	}
	defer rows.Close()
	items := []*Insurer{}
	for rows.Next() {
		i, err := scanInsurer(rows)
		if err != nil {
			return nil, 0, db.Wrap("list insurers", err)
		}
		items = append(items, i)
	}
	return items, total, db.Wrap("list insurers", rows.Err())
}
