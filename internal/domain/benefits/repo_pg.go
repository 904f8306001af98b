package benefits

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/carepilot/carepilot/internal/platform/db"
)

type benefitsRepoPG struct {
	pools   db.PoolSource
	catalog db.CatalogSource
}

func NewBenefitsRepoPG(pools db.PoolSource, catalog db.CatalogSource) BenefitsRepository {
	return &benefitsRepoPG{pools: pools, catalog: catalog}
}

const benefitsCols = `id, user_id, plan_name, policy_number, plan_type, insurance_provider, group_number,
	effective_date, expiration_date, out_of_pocket_max_individual, out_of_pocket_max_family,
	network_type, in_network_required, deductibles, copays, coinsurance, coverage_limits, services,
	preauth_required_services, exclusions, special_programs, notes, source_document_id,
	created_at, updated_at`

// Columns written on every upsert besides the natural key, in argument order
// starting at $4.
var benefitsDataCols = []string{
	"plan_type", "insurance_provider", "group_number", "effective_date", "expiration_date",
	"out_of_pocket_max_individual", "out_of_pocket_max_family", "network_type", "in_network_required",
	"deductibles", "copays", "coinsurance", "coverage_limits", "services",
	"preauth_required_services", "exclusions", "special_programs", "notes", "source_document_id",
}

func scanBenefits(row pgx.Row) (*InsuranceBenefits, error) {
	var b InsuranceBenefits
	err := row.Scan(&b.ID, &b.UserID, &b.PlanName, &b.PolicyNumber, &b.PlanType, &b.InsuranceProvider, &b.GroupNumber,
		&b.EffectiveDate, &b.ExpirationDate, &b.OutOfPocketMaxIndividual, &b.OutOfPocketMaxFamily,
		&b.NetworkType, &b.InNetworkRequired, &b.Deductibles, &b.Copays, &b.Coinsurance, &b.CoverageLimits, &b.Services,
		&b.PreauthRequiredServices, &b.Exclusions, &b.SpecialPrograms, &b.Notes, &b.SourceDocumentID,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *benefitsRepoPG) table(ctx context.Context) (db.Querier, string, error) {
	cat, err := r.catalog.Catalog(ctx)
	if err != nil {
		return nil, "", err
	}
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, "", err
	}
	return q, db.Ident(cat.InsuranceBenefits), nil
}

// mergeSQL builds the MERGE for table. The policy number comparison treats
// two NULLs as equal so a plan without one is still updated in place.
func mergeSQL(table string) string {
	sets := make([]string, len(benefitsDataCols))
	vals := make([]string, len(benefitsDataCols))
	for i, col := range benefitsDataCols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+4)
		vals[i] = fmt.Sprintf("$%d", i+4)
	}
	return `
		MERGE INTO ` + table + ` AS t
		USING (SELECT $1::text AS plan_name, $2::text AS policy_number, $3::text AS user_id) AS s
		ON t.plan_name = s.plan_name AND t.user_id = s.user_id
			AND (t.policy_number = s.policy_number OR (t.policy_number IS NULL AND s.policy_number IS NULL))
		WHEN MATCHED THEN UPDATE SET ` + strings.Join(sets, ", ") + `, updated_at = NOW()
		WHEN NOT MATCHED THEN INSERT (plan_name, policy_number, user_id, ` + strings.Join(benefitsDataCols, ", ") + `)
			VALUES (s.plan_name, s.policy_number, s.user_id, ` + strings.Join(vals, ", ") + `)`
}

func normalize(b *InsuranceBenefits) {
	if b.Deductibles == nil {
		b.Deductibles = []Deductible{}
	}
	if b.Copays == nil {
		b.Copays = []Copay{}
	}
	if b.Coinsurance == nil {
		b.Coinsurance = []Coinsurance{}
	}
	if b.CoverageLimits == nil {
		b.CoverageLimits = []CoverageLimit{}
	}
	if b.Services == nil {
		b.Services = []ServiceCoverage{}
	}
	if b.PreauthRequiredServices == nil {
		b.PreauthRequiredServices = []string{}
	}
	if b.Exclusions == nil {
		b.Exclusions = []string{}
	}
	if b.SpecialPrograms == nil {
		b.SpecialPrograms = []string{}
	}
}

func (r *benefitsRepoPG) Upsert(ctx context.Context, b *InsuranceBenefits) error {
	q, table, err := r.table(ctx)
	if err != nil {
		return db.Wrap("upsert insurance benefits", err)
	}
	normalize(b)

	_, err = q.Exec(ctx, mergeSQL(table),
		b.PlanName, b.PolicyNumber, b.UserID,
		b.PlanType, b.InsuranceProvider, b.GroupNumber, b.EffectiveDate, b.ExpirationDate,
		b.OutOfPocketMaxIndividual, b.OutOfPocketMaxFamily, b.NetworkType, b.InNetworkRequired,
		b.Deductibles, b.Copays, b.Coinsurance, b.CoverageLimits, b.Services,
		b.PreauthRequiredServices, b.Exclusions, b.SpecialPrograms, b.Notes, b.SourceDocumentID)
	if err != nil {
		return db.Wrap("upsert insurance benefits", err)
	}

	err = q.QueryRow(ctx, `SELECT id, created_at, updated_at FROM `+table+`
		WHERE plan_name = $1 AND user_id = $2 AND policy_number IS NOT DISTINCT FROM $3::text
		ORDER BY updated_at DESC LIMIT 1`,
		b.PlanName, b.UserID, b.PolicyNumber).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return db.Wrap("upsert insurance benefits", err)
}

func (r *benefitsRepoPG) GetLatestByUser(ctx context.Context, userID string) (*InsuranceBenefits, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("get insurance benefits", err)
	}
	b, err := scanBenefits(q.QueryRow(ctx, `SELECT `+benefitsCols+` FROM `+table+`
		WHERE user_id = $1 ORDER BY updated_at DESC, id DESC LIMIT 1`, userID))
	if err != nil {
		return nil, db.Wrap("get insurance benefits", err)
	}
	return b, nil
}

func (r *benefitsRepoPG) ListByUser(ctx context.Context, userID string) ([]*InsuranceBenefits, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("list insurance benefits", err)
	}
	rows, err := q.Query(ctx, `SELECT `+benefitsCols+` FROM `+table+`
		WHERE user_id = $1 ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, db.Wrap("list insurance benefits", err)
	}
	defer rows.Close()
	items := []*InsuranceBenefits{}
	for rows.Next() {
		b, err := scanBenefits(rows)
		if err != nil {
			return nil, db.Wrap("list insurance benefits", err)
		}
		items = append(items, b)
	}
	return items, db.Wrap("list insurance benefits", rows.Err())
}
