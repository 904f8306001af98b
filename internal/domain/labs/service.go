package labs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/blobstore"
	"github.com/carepilot/carepilot/internal/platform/events"
	"github.com/carepilot/carepilot/internal/platform/httperr"
	"github.com/carepilot/carepilot/internal/platform/ids"
)

// ErrTooLarge is returned for uploads over the configured limit.
var ErrTooLarge = errors.New("lab file exceeds upload limit")

// Accepted upload types, keyed by sniffed content type.
var uploadExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusProcessed: true,
	StatusFailed:    true,
}

var (
	numberPattern = regexp.MustCompile(`(\d+\.?\d*)`)
	// unitPattern takes the token right after a number, stopping at
	// whitespace or a parenthesis: "11.0 gm% (low)" yields "gm%".
	unitPattern = regexp.MustCompile(`^\s*([^\s()\d.,][^\s()]*)`)
)

type Service struct {
	reports  LabReportRepository
	blobs    blobstore.Store
	events   *events.Dispatcher
	maxBytes int64
	logger   zerolog.Logger
}

// NewService wires the lab report service. blobs may be nil, in which case
// uploads fail with blobstore.ErrNotConfigured.
func NewService(reports LabReportRepository, blobs blobstore.Store, dispatcher *events.Dispatcher, maxBytes int64, logger zerolog.Logger) *Service {
	return &Service{reports: reports, blobs: blobs, events: dispatcher, maxBytes: maxBytes, logger: logger}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores a lab file and records a pending report for it. The
// extraction pipeline picks the report up from the emitted event.
func (s *Service) Upload(ctx context.Context, userID, fileName string, data []byte) (*LabReport, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	if len(data) == 0 {
		return nil, httperr.Invalidf("file is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := uploadExtensions[contentType]
	if !ok {
		return nil, httperr.Invalidf("unsupported file type %s: upload a PDF, PNG or JPEG", contentType)
	}
	if s.blobs == nil {
		return nil, blobstore.ErrNotConfigured
	}

	key := fmt.Sprintf("labs/%s/%s%s", userID, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	if _, err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store lab file: %w", err)
	}

	rep := &LabReport{
		ID:          ids.New("lab"),
		UserID:      userID,
		FileName:    path.Base(strings.ReplaceAll(fileName, `\`, "/")),
		BlobKey:     key,
		ContentType: contentType,
		Status:      StatusPending,
	}
	if err := s.reports.Upsert(ctx, rep); err != nil {
		return nil, err
	}

	s.events.Emit(events.New(events.TypeLabReportUploaded, rep.ID, userID, map[string]interface{}{
		"blob_key":     key,
		"content_type": contentType,
		"file_name":    rep.FileName,
		"size":         len(data),
	}))
	s.logger.Info().Str("lab_report_id", rep.ID).Str("blob_key", key).Int("size", len(data)).Msg("lab report uploaded")
	return rep, nil
}

// SaveReport upserts a report by id, typically with extraction results.
func (s *Service) SaveReport(ctx context.Context, rep *LabReport) error {
	rep.UserID = strings.TrimSpace(rep.UserID)
	if rep.UserID == "" {
		return httperr.Invalidf("user_id is required")
	}
	if rep.ID == "" {
		rep.ID = ids.New("lab")
	}
	if rep.Status == "" {
		rep.Status = StatusPending
	}
	if !validStatuses[rep.Status] {
		return httperr.Invalidf("invalid status: %s", rep.Status)
	}
	for i, p := range rep.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return httperr.Invalidf("parameters[%d]: name is required", i)
		}
		if p.Status == "" {
			rep.Parameters[i].Status = ParameterStatus(p)
		}
	}
	return s.reports.Upsert(ctx, rep)
}

func (s *Service) GetReport(ctx context.Context, id string) (*LabReport, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, userID string) ([]*LabReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	return s.reports.ListByUser(ctx, userID)
}

// TimeSeries groups every numeric parameter value across the user's reports
// by parameter name, ordered by report date.
func (s *Service) TimeSeries(ctx context.Context, userID string) (*TimeSeries, error) {
	reports, err := s.ListReports(ctx, userID)
	if err != nil {
		return nil, err
	}
	ts := &TimeSeries{UserID: userID, Series: map[string][]Point{}}
	for _, rep := range reports {
		date := rep.CreatedAt.Format("2006-01-02")
		if rep.ReportDate != nil && *rep.ReportDate != "" {
			date = *rep.ReportDate
		}
		for _, p := range rep.Parameters {
			value, unit, ok := numericValue(p)
			if !ok {
				continue
			}
			status := p.Status
			if status == "" {
				status = ParameterStatus(p)
			}
			name := strings.TrimSpace(p.Name)
			ts.Series[name] = append(ts.Series[name], Point{Date: date, Value: value, Unit: unit, Status: status})
		}
	}
	for name := range ts.Series {
		points := ts.Series[name]
		sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	}
	return ts, nil
}

// numericValue prefers the extracted number and falls back to the first
// number in the display value. The unit comes from the parameter, else from
// the token following that number.
func numericValue(p Parameter) (float64, string, bool) {
	unit := strings.TrimSpace(p.Unit)
	if p.NumericValue != nil {
		return *p.NumericValue, unit, true
	}
	text := strings.ReplaceAll(p.Value, ",", "")
	loc := numberPattern.FindStringIndex(text)
	if loc == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(text[loc[0]:loc[1]], "."), 64)
	if err != nil {
		return 0, "", false
	}
	if unit == "" {
		if m := unitPattern.FindStringSubmatch(text[loc[1]:]); m != nil {
			unit = m[1]
		}
	}
	return v, unit, true
}
