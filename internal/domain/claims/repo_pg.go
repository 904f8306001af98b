package claims

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/carepilot/carepilot/internal/platform/db"
)

type eobRepoPG struct {
	pools   db.PoolSource
	catalog db.CatalogSource
}

func NewEOBRepoPG(pools db.PoolSource, catalog db.CatalogSource) EOBRepository {
	return &eobRepoPG{pools: pools, catalog: catalog}
}

const eobCols = `id, user_id, claim_number, member_name, member_address, member_id, group_number,
	claim_date, provider_name, provider_npi, total_billed, total_benefits_approved, amount_you_owe,
	services, coverage_breakdown, alerts, discrepancies, insurance_provider, plan_name,
	policy_number, source_document_id, case_status, created_at, updated_at`

// Columns written on upsert besides the natural key, in argument order
// starting at $3.
var eobDataCols = []string{
	"member_name", "member_address", "member_id", "group_number", "claim_date",
	"provider_name", "provider_npi", "total_billed", "total_benefits_approved", "amount_you_owe",
	"services", "coverage_breakdown", "alerts", "discrepancies",
	"insurance_provider", "plan_name", "policy_number", "source_document_id",
}

func scanEOB(row pgx.Row) (*EOBRecord, error) {
	var r EOBRecord
	err := row.Scan(&r.ID, &r.UserID, &r.ClaimNumber, &r.MemberName, &r.MemberAddress, &r.MemberID, &r.GroupNumber,
		&r.ClaimDate, &r.ProviderName, &r.ProviderNPI, &r.TotalBilled, &r.TotalBenefitsApproved, &r.AmountYouOwe,
		&r.Services, &r.CoverageBreakdown, &r.Alerts, &r.Discrepancies, &r.InsuranceProvider, &r.PlanName,
		&r.PolicyNumber, &r.SourceDocumentID, &r.CaseStatus, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *eobRepoPG) table(ctx context.Context) (db.Querier, string, error) {
	cat, err := r.catalog.Catalog(ctx)
	if err != nil {
		return nil, "", err
	}
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, "", err
	}
	return q, db.Ident(cat.EOBRecords), nil
}

func eobMergeSQL(table string) string {
	sets := make([]string, len(eobDataCols))
	vals := make([]string, len(eobDataCols))
	for i, col := range eobDataCols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+3)
		vals[i] = fmt.Sprintf("$%d", i+3)
	}
	return `
		MERGE INTO ` + table + ` AS t
		USING (SELECT $1::text AS claim_number, $2::text AS user_id) AS s
		ON t.claim_number = s.claim_number AND t.user_id = s.user_id
		WHEN MATCHED THEN UPDATE SET ` + strings.Join(sets, ", ") + `, updated_at = NOW()
		WHEN NOT MATCHED THEN INSERT (claim_number, user_id, ` + strings.Join(eobDataCols, ", ") + `)
			VALUES (s.claim_number, s.user_id, ` + strings.Join(vals, ", ") + `)`
}

func normalize(rec *EOBRecord) {
	if rec.Services == nil {
		rec.Services = []ServiceDetail{}
	}
	if rec.Alerts == nil {
		rec.Alerts = []string{}
	}
	if rec.Discrepancies == nil {
		rec.Discrepancies = []string{}
	}
}

func (r *eobRepoPG) Upsert(ctx context.Context, rec *EOBRecord) error {
	q, table, err := r.table(ctx)
	if err != nil {
		return db.Wrap("upsert eob record", err)
	}
	normalize(rec)

	_, err = q.Exec(ctx, eobMergeSQL(table),
		rec.ClaimNumber, rec.UserID,
		rec.MemberName, rec.MemberAddress, rec.MemberID, rec.GroupNumber, rec.ClaimDate,
		rec.ProviderName, rec.ProviderNPI, rec.TotalBilled, rec.TotalBenefitsApproved, rec.AmountYouOwe,
		rec.Services, rec.CoverageBreakdown, rec.Alerts, rec.Discrepancies,
		rec.InsuranceProvider, rec.PlanName, rec.PolicyNumber, rec.SourceDocumentID)
	if err != nil {
		return db.Wrap("upsert eob record", err)
	}

	err = q.QueryRow(ctx, `SELECT id, case_status, created_at, updated_at FROM `+table+`
		WHERE claim_number = $1 AND user_id = $2`, rec.ClaimNumber, rec.UserID).
		Scan(&rec.ID, &rec.CaseStatus, &rec.CreatedAt, &rec.UpdatedAt)
	return db.Wrap("upsert eob record", err)
}

func (r *eobRepoPG) GetByClaim(ctx context.Context, claimNumber, userID string) (*EOBRecord, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("get eob record", err)
	}
	rec, err := scanEOB(q.QueryRow(ctx, `SELECT `+eobCols+` FROM `+table+`
		WHERE claim_number = $1 AND user_id = $2`, claimNumber, userID))
	if err != nil {
		return nil, db.Wrap("get eob record", err)
	}
	return rec, nil
}

func (r *eobRepoPG) ListByUser(ctx context.Context, userID string) ([]*EOBRecord, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("list eob records", err)
	}
	rows, err := q.Query(ctx, `SELECT `+eobCols+` FROM `+table+`
		WHERE user_id = $1 ORDER BY claim_date DESC NULLS LAST, updated_at DESC`, userID)
	if err != nil {
		return nil, db.Wrap("list eob records", err)
	}
	defer rows.Close()
	items := []*EOBRecord{}
	for rows.Next() {
		rec, err := scanEOB(rows)
		if err != nil {
			return nil, db.Wrap("list eob records", err)
		}
		items = append(items, rec)
	}
	return items, db.Wrap("list eob records", rows.Err())
}

func (r *eobRepoPG) UpdateCaseStatus(ctx context.Context, claimNumber, userID, status string) error {
	q, table, err := r.table(ctx)
	if err != nil {
		return db.Wrap("update case status", err)
	}
	tag, err := q.Exec(ctx, `UPDATE `+table+` SET case_status = $1, updated_at = NOW()
		WHERE claim_number = $2 AND user_id = $3`, status, claimNumber, userID)
	if err != nil {
		return db.Wrap("update case status", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("update case status", pgx.ErrNoRows)
	}
	return nil
}
