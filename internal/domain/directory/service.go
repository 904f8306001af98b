package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/internal/platform/httperr"
	"github.com/carepilot/carepilot/pkg/pagination"
)

var (
	slotDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slotTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

type Service struct {
	doctors DoctorRepository
	blob    *DirectoryStore
	logger  zerolog.Logger
}

func NewService(doctors DoctorRepository, blob *DirectoryStore, logger zerolog.Logger) *Service {
	return &Service{doctors: doctors, blob: blob, logger: logger}
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.ID == "" {
		return httperr.Invalidf("id is required")
	}
	if d.Name == "" {
		return httperr.Invalidf("name is required")
	}
	if d.Rating < 0 || d.Rating > 5 {
		return httperr.Invalidf("rating must be between 0 and 5")
	}
	if err := validateSlots(d.Slots); err != nil {
		return err
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// ListDoctors filters in the repository and pages the result in memory, since
// the language filter runs after the rows are read.
func (s *Service) ListDoctors(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Doctor, int, error) {
	all, err := s.doctors.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return pagination.Window(all, pg), len(all), nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id string, patch *DoctorPatch) (*Doctor, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, httperr.Invalidf("name cannot be empty")
	}
	if patch.Rating != nil && (*patch.Rating < 0 || *patch.Rating > 5) {
		return nil, httperr.Invalidf("rating must be between 0 and 5")
	}
	return s.doctors.Update(ctx, id, patch)
}

// ReplaceSlots overwrites the doctor's whole slot list.
func (s *Service) ReplaceSlots(ctx context.Context, id string, slots []Slot) error {
	if err := validateSlots(slots); err != nil {
		return err
	}
	return s.doctors.ReplaceSlots(ctx, id, slots)
}

func validateSlots(slots []Slot) error {
	seen := make(map[string]bool, len(slots))
	for i, sl := range slots {
		if !slotDatePattern.MatchString(sl.Date) {
			return httperr.Invalidf("slots[%d]: date must be YYYY-MM-DD", i)
		}
		if !slotTimePattern.MatchString(sl.Time) {
			return httperr.Invalidf("slots[%d]: time must be HH:MM", i)
		}
		key := sl.Date + " " + sl.Time
		if seen[key] {
			return httperr.Invalidf("slots[%d]: duplicate slot %s", i, key)
		}
		seen[key] = true
	}
	return nil
}

// Directory returns the blob directory filtered and paged like ListDoctors.
// An unreachable directory reads as empty.
func (s *Service) Directory(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Doctor, int) {
	var matched []*Doctor
	for _, d := range s.blob.DownloadDoctors(ctx) {
		if f.Matches(d) {
			matched = append(matched, d)
		}
	}
	return pagination.Window(matched, pg), len(matched)
}

// Seed stores n generated doctors. Ids that already exist are skipped.
func (s *Service) Seed(ctx context.Context, doctors []*Doctor) (created, skipped int, err error) {
	for _, d := range doctors {
		if err := s.doctors.Create(ctx, d); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("seed doctor %s: %w", d.ID, err)
		}
		created++
	}
	return created, skipped, nil
}

// SyncToBlob publishes the SQL directory as doctors.json.
func (s *Service) SyncToBlob(ctx context.Context) (int, error) {
	doctors, err := s.doctors.List(ctx, ListFilter{})
	if err != nil {
		return 0, err
	}
	if err := s.blob.UploadDoctors(ctx, doctors); err != nil {
		return 0, err
	}
	return len(doctors), nil
}

// SyncToSQL loads doctors.json into the doctor table. Unlike the directory
// endpoint, a missing or unreadable blob is an error here.
func (s *Service) SyncToSQL(ctx context.Context) (int, error) {
	doctors, err := s.blob.FetchDoctors(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range doctors {
		if d.ID == "" || strings.TrimSpace(d.Name) == "" {
			return 0, httperr.Invalidf("directory entry without id or name")
		}
	}
	n, err := s.doctors.BulkUpsert(ctx, doctors)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", n).Msg("doctor directory synced to sql")
	return n, nil
}
