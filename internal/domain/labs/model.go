package labs

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// LabReport maps to LabReport or LabReport_v2, whichever the catalog resolves.
type LabReport struct {
	ID          string                         `db:"id" json:"id"`
	UserID      string                         `db:"user_id" json:"user_id"`
	FileName    string                         `db:"file_name" json:"file_name"`
	BlobKey     string                         `db:"blob_key" json:"blob_key"`
	ContentType string                         `db:"content_type" json:"content_type"`
	Status      string                         `db:"status" json:"status"`
	ReportDate  *string                        `db:"report_date" json:"report_date,omitempty"`
	LabName     *string                        `db:"lab_name" json:"lab_name,omitempty"`
	RawExtract  datatypes.JSON                 `db:"raw_extract" json:"raw_extract,omitempty"`
	Parameters  datatypes.JSONSlice[Parameter] `db:"parameters" json:"parameters"`
	CreatedAt   time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                      `db:"updated_at" json:"updated_at"`
}

// Parameter is one measured value on a report. NumericValue is set by the
// extraction pipeline when it could parse Value.
type Parameter struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	NumericValue   *float64 `json:"numeric_value,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	ReferenceRange string   `json:"reference_range,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// Point is one observation in a parameter's time series.
type Point struct {
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	Status string  `json:"status,omitempty"`
}

type TimeSeries struct {
	UserID string             `json:"user_id"`
	Series map[string][]Point `json:"series"`
}
