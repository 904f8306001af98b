package directory

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Doctor maps to doctorInformation_table and to the entries of doctors.json.
type Doctor struct {
	ID                string                      `db:"id" json:"id"`
	Name              string                      `db:"name" json:"name"`
	Specialty         string                      `db:"specialty" json:"specialty"`
	Address           *string                     `db:"address" json:"address,omitempty"`
	City              *string                     `db:"city" json:"city,omitempty"`
	State             *string                     `db:"state" json:"state,omitempty"`
	ZipCode           *string                     `db:"zip_code" json:"zip_code,omitempty"`
	Phone             *string                     `db:"phone" json:"phone,omitempty"`
	Rating            float64                     `db:"rating" json:"rating"`
	ReviewCount       int                         `db:"review_count" json:"review_count"`
	YearsExperience   int                         `db:"years_experience" json:"years_experience"`
	Bio               *string                     `db:"bio" json:"bio,omitempty"`
	AcceptsTelehealth bool                        `db:"accepts_telehealth" json:"accepts_telehealth"`
	InNetwork         bool                        `db:"in_network" json:"in_network"`
	Languages         datatypes.JSONSlice[string] `db:"languages" json:"languages"`
	Slots             datatypes.JSONSlice[Slot]   `db:"slots" json:"slots"`
	Reasons           datatypes.JSONSlice[string] `db:"reasons" json:"reasons"`
	CreatedAt         time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                   `db:"updated_at" json:"updated_at"`
}

// Slot is a bookable time. Date is YYYY-MM-DD, Time is HH:MM.
type Slot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DoctorPatch carries a partial doctor update. Nil fields are left unchanged.
type DoctorPatch struct {
	Name              *string   `json:"name"`
	Specialty         *string   `json:"specialty"`
	Address           *string   `json:"address"`
	City              *string   `json:"city"`
	State             *string   `json:"state"`
	ZipCode           *string   `json:"zip_code"`
	Phone             *string   `json:"phone"`
	Rating            *float64  `json:"rating"`
	ReviewCount       *int      `json:"review_count"`
	YearsExperience   *int      `json:"years_experience"`
	Bio               *string   `json:"bio"`
	AcceptsTelehealth *bool     `json:"accepts_telehealth"`
	InNetwork         *bool     `json:"in_network"`
	Languages         *[]string `json:"languages"`
	Reasons           *[]string `json:"reasons"`
}

// ListFilter narrows a doctor listing. Empty fields do not filter.
type ListFilter struct {
	Specialty  string
	Language   string
	Search     string
	Telehealth *bool
	InNetwork  *bool
}

// Matches evaluates the whole filter in memory. The SQL listing pushes every
// field except Language into the query and uses MatchesLanguage afterwards.
func (f ListFilter) Matches(d *Doctor) bool {
	if f.Specialty != "" && !containsFold(d.Specialty, f.Specialty) {
		return false
	}
	if f.Telehealth != nil && d.AcceptsTelehealth != *f.Telehealth {
		return false
	}
	if f.InNetwork != nil && d.InNetwork != *f.InNetwork {
		return false
	}
	if f.Search != "" {
		hit := containsFold(d.Name, f.Search) || containsFold(d.Specialty, f.Search) ||
			containsFold(deref(d.Bio), f.Search) || containsFold(deref(d.City), f.Search)
		if !hit {
			return false
		}
	}
	return f.MatchesLanguage(d)
}

// MatchesLanguage reports whether any of the doctor's languages contains the
// requested one, case-insensitively.
func (f ListFilter) MatchesLanguage(d *Doctor) bool {
	if f.Language == "" {
		return true
	}
	for _, lang := range d.Languages {
		if containsFold(lang, f.Language) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
