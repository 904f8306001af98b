package labs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"gorm.io/datatypes"

	"github.com/carepilot/carepilot/internal/platform/db"
)

type labReportRepoPG struct {
	pools   db.PoolSource
	catalog db.CatalogSource
}

func NewLabReportRepoPG(pools db.PoolSource, catalog db.CatalogSource) LabReportRepository {
	return &labReportRepoPG{pools: pools, catalog: catalog}
}

const labCols = `id, user_id, file_name, blob_key, content_type, status, report_date, lab_name,
	raw_extract, parameters, created_at, updated_at`

func scanLabReport(row pgx.Row) (*LabReport, error) {
	var r LabReport
	err := row.Scan(&r.ID, &r.UserID, &r.FileName, &r.BlobKey, &r.ContentType, &r.Status,
		&r.ReportDate, &r.LabName, &r.RawExtract, &r.Parameters, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *labReportRepoPG) table(ctx context.Context) (db.Querier, string, error) {
	cat, err := r.catalog.Catalog(ctx)
	if err != nil {
		return nil, "", err
	}
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, "", err
	}
	return q, db.Ident(cat.LabReports), nil
}

func normalize(rep *LabReport) {
	if len(rep.RawExtract) == 0 {
		rep.RawExtract = datatypes.JSON(`{}`)
	}
	if rep.Parameters == nil {
		rep.Parameters = datatypes.JSONSlice[Parameter]{}
	}
}

func (r *labReportRepoPG) Upsert(ctx context.Context, rep *LabReport) error {
	q, table, err := r.table(ctx)
	if err != nil {
		return db.Wrap("upsert lab report", err)
	}
	normalize(rep)

	_, err = q.Exec(ctx, `
		MERGE INTO `+table+` AS t
		USING (SELECT $1::text AS id) AS s ON t.id = s.id
		WHEN MATCHED THEN UPDATE SET
			user_id = $2, file_name = $3, blob_key = $4, content_type = $5, status = $6,
			report_date = $7, lab_name = $8, raw_extract = $9, parameters = $10, updated_at = NOW()
		WHEN NOT MATCHED THEN INSERT
			(id, user_id, file_name, blob_key, content_type, status, report_date, lab_name, raw_extract, parameters)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.ID, rep.UserID, rep.FileName, rep.BlobKey, rep.ContentType, rep.Status,
		rep.ReportDate, rep.LabName, rep.RawExtract, rep.Parameters)
	if err != nil {
		return db.Wrap("upsert lab report", err)
	}

	err = q.QueryRow(ctx, `SELECT created_at, updated_at FROM `+table+` WHERE id = $1`, rep.ID).
		Scan(&rep.CreatedAt, &rep.UpdatedAt)
	return db.Wrap("upsert lab report", err)
}

func (r *labReportRepoPG) GetByID(ctx context.Context, id string) (*LabReport, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("get lab report", err)
	}
	rep, err := scanLabReport(q.QueryRow(ctx, `SELECT `+labCols+` FROM `+table+` WHERE id = $1`, id))
	if err != nil {
		return nil, db.Wrap("get lab report", err)
	}
	return rep, nil
}

func (r *labReportRepoPG) ListByUser(ctx context.Context, userID string) ([]*LabReport, error) {
	q, table, err := r.table(ctx)
	if err != nil {
		return nil, db.Wrap("list lab reports", err)
	}
	rows, err := q.Query(ctx, `SELECT `+labCols+` FROM `+table+`
		WHERE user_id = $1 ORDER BY COALESCE(report_date, ''), created_at`, userID)
	if err != nil {
		return nil, db.Wrap("list lab reports", err)
	}
	defer rows.Close()
	items := []*LabReport{}
	for rows.Next() {
		rep, err := scanLabReport(rows)
		if err != nil {
			return nil, db.Wrap("list lab reports", err)
		}
		items = append(items, rep)
	}
	return items, db.Wrap("list lab reports", rows.Err())
}
