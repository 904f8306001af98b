package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logical tables that exist in a base and a _v2 schema generation.
const (
	LabReportTable         = "LabReport"
	InsuranceBenefitsTable = "insurance_benefits"
	EOBRecordsTable        = "eob_records"

	UserTable = "user_table"
)

const v2Suffix = "_v2"

// Optional user_table columns added by later schema revisions.
const (
	ColOAuthProvider   = "oauth_provider"
	ColOAuthProviderID = "oauth_provider_id"
	ColOAuthEmail      = "oauth_email"
)

// Catalog records which physical tables back the versioned entities and
// which optional user columns exist.
type Catalog struct {
	LabReports        string
	InsuranceBenefits string
	EOBRecords        string

	userColumns map[string]bool
}

// HasUserColumn reports whether user_table has the named column.
func (c *Catalog) HasUserColumn(name string) bool {
	return c.userColumns[name]
}

// SupportsOAuth is true when all three OAuth linkage columns are present.
func (c *Catalog) SupportsOAuth() bool {
	return c.HasUserColumn(ColOAuthProvider) && c.HasUserColumn(ColOAuthProviderID) && c.HasUserColumn(ColOAuthEmail)
}

// UserColumns returns the detected user_table columns in sorted order.
func (c *Catalog) UserColumns() []string {
	cols := make([]string, 0, len(c.userColumns))
	for col := range c.userColumns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// NewCatalog builds a catalog from the set of existing tables and user columns.
func NewCatalog(tables, userColumns map[string]bool) *Catalog {
	cols := make(map[string]bool, len(userColumns))
	for k, v := range userColumns {
		cols[k] = v
	}
	return &Catalog{
		LabReports:        pickTable(LabReportTable, tables),
		InsuranceBenefits: pickTable(InsuranceBenefitsTable, tables),
		EOBRecords:        pickTable(EOBRecordsTable, tables),
		userColumns:       cols,
	}
}

// pickTable prefers base_v2, falls back to base when only it exists, and
// defaults to base_v2 when neither is present.
func pickTable(base string, existing map[string]bool) string {
	v2 := base + v2Suffix
	switch {
	case existing[v2]:
		return v2
	case existing[base]:
		return base
	default:
		return v2
	}
}

// CatalogSource is what repositories need to find their tables.
type CatalogSource interface {
	Catalog(ctx context.Context) (*Catalog, error)
}

// Resolver detects the catalog once and serves the cached result until Reset.
type Resolver struct {
	pools  PoolSource
	lookup func(ctx context.Context) (tables, userColumns map[string]bool, err error)

	mu     sync.Mutex
	cached *Catalog
}

func NewResolver(pools PoolSource) *Resolver {
	r := &Resolver{pools: pools}
	r.lookup = r.queryCatalog
	return r
}

func (r *Resolver) Catalog(ctx context.Context) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}

	tables, cols, err := r.lookup(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect table names: %w", err)
	}
	r.cached = NewCatalog(tables, cols)
	return r.cached, nil
}

// Reset drops the cached catalog so the next call re-reads the schema.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *Resolver) queryCatalog(ctx context.Context) (map[string]bool, map[string]bool, error) {
	q, err := Conn(ctx, r.pools)
	if err != nil {
		return nil, nil, err
	}

	candidates := []string{
		LabReportTable, LabReportTable + v2Suffix,
		InsuranceBenefitsTable, InsuranceBenefitsTable + v2Suffix,
		EOBRecordsTable, EOBRecordsTable + v2Suffix,
	}
	tables, err := collectNames(ctx, q, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, candidates)
	if err != nil {
		return nil, nil, err
	}

	cols, err := collectNames(ctx, q, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, UserTable)
	if err != nil {
		return nil, nil, err
	}
	return tables, cols, nil
}

func collectNames(ctx context.Context, q Querier, sql string, arg interface{}) (map[string]bool, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}
