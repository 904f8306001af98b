package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/domain/claims"
	"github.com/carepilot/carepilot/internal/domain/labs"
	"github.com/carepilot/carepilot/internal/domain/scheduling"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

const (
	attentionWindow   = 48 * time.Hour
	upcomingShown     = 2
	recentShown       = 6
	appointmentsFetch = 100
)

type LabSource interface {
	ListReports(ctx context.Context, userID string) ([]*labs.LabReport, error)
}

type AppointmentSource interface {
	ListAppointments(ctx context.Context, f scheduling.ListFilter, limit, offset int) ([]*scheduling.Appointment, int, error)
}

type CaseSource interface {
	Cases(ctx context.Context, userID string) ([]*claims.Case, error)
}

// Service assembles the dashboard from the labs, scheduling and claims
// services. A failing source leaves its sections empty.
type Service struct {
	labs         LabSource
	appointments AppointmentSource
	cases        CaseSource
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(l LabSource, a AppointmentSource, c CaseSource, logger zerolog.Logger) *Service {
	return &Service{labs: l, appointments: a, cases: c, logger: logger, now: time.Now}
}

func (s *Service) Build(ctx context.Context, userID string) (*Dashboard, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	now := s.now()

	reports, err := s.labs.ListReports(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("dashboard: lab reports unavailable")
	}
	appts, _, err := s.appointments.ListAppointments(ctx, scheduling.ListFilter{UserEmail: userID}, appointmentsFetch, 0)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("dashboard: appointments unavailable")
	}
	cases, err := s.cases.Cases(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("dashboard: cases unavailable")
	}

	d := &Dashboard{
		UserID:         userID,
		GeneratedAt:    now.UTC(),
		NeedsAttention: []Card{},
		QuickAccess: QuickAccess{
			UpcomingAppointments: []UpcomingAppointment{},
			ActiveCases:          activeCases(cases),
			LatestLab:            latestLab(reports),
			RecentActivity:       recentActivity(reports, cases, appts, now),
		},
	}
	d.NeedsAttention = append(d.NeedsAttention, labCards(reports)...)
	d.NeedsAttention = append(d.NeedsAttention, caseCards(cases)...)

	for _, a := range appts {
		start, ok := appointmentStart(a, now.Location())
		if !ok || !isActive(a) || start.Before(now) {
			continue
		}
		if !start.After(now.Add(attentionWindow)) {
			d.NeedsAttention = append(d.NeedsAttention, appointmentCard(a, start))
		}
		if len(d.QuickAccess.UpcomingAppointments) < upcomingShown {
			d.QuickAccess.UpcomingAppointments = append(d.QuickAccess.UpcomingAppointments, UpcomingAppointment{
				ID:       a.ID,
				DoctorID: a.DoctorID,
				Date:     a.AppointmentDate,
				Time:     a.AppointmentTime,
				Type:     a.AppointmentType,
				Status:   a.Status,
			})
		}
	}
	return d, nil
}

func reportTitle(r *labs.LabReport) string {
	if r.LabName != nil && *r.LabName != "" {
		return *r.LabName
	}
	return r.FileName
}

// reportTime prefers the printed report date over the upload time.
func reportTime(r *labs.LabReport) time.Time {
	if r.ReportDate != nil {
		if t, err := time.Parse("2006-01-02", *r.ReportDate); err == nil {
			return t
		}
	}
	return r.CreatedAt
}

func labCards(reports []*labs.LabReport) []Card {
	var cards []Card
	for _, r := range reports {
		for _, p := range r.Parameters {
			if !labs.IsAbnormal(p) {
				continue
			}
			status := p.Status
			if status == "" {
				status = labs.ParameterStatus(p)
			}
			trend := "Elevated"
			if status == labs.ParamLow {
				trend = "Trending Low"
			}
			cards = append(cards, Card{
				ID:    fmt.Sprintf("lab-%s-%s", r.ID, p.Name),
				Type:  KindLab,
				Title: p.Name + ": " + trend,
				Body: fmt.Sprintf("%s measured %s%s, outside the reference range (%s).",
					p.Name, p.Value, p.Unit, p.ReferenceRange),
				Metadata: map[string]interface{}{
					"report_id":    r.ID,
					"report_title": reportTitle(r),
					"report_date":  reportTime(r).Format("2006-01-02"),
					"status":       status,
				},
			})
		}
	}
	return cards
}

func caseCards(cases []*claims.Case) []Card {
	var cards []Card
	for _, c := range cases {
		if c.Status != claims.CaseNeedsReview && c.Alert == nil {
			continue
		}
		body := c.Description
		if c.Alert != nil {
			body = *c.Alert
		}
		if body == "" {
			body = "Case requires your review."
		}
		cards = append(cards, Card{
			ID:    "case-" + c.ID,
			Type:  KindCase,
			Title: c.Title,
			Body:  body,
			Metadata: map[string]interface{}{
				"claim_number":   c.ClaimNumber,
				"status":         c.Status,
				"amount_you_owe": c.Amount,
				"provider":       c.Provider,
			},
		})
	}
	return cards
}

func appointmentCard(a *scheduling.Appointment, start time.Time) Card {
	return Card{
		ID:    "appointment-" + a.ID,
		Type:  KindAppointment,
		Title: "Upcoming appointment",
		Body:  "Prep reminder for " + start.Format("Monday at 03:04 PM"),
		Metadata: map[string]interface{}{
			"doctor_id":        a.DoctorID,
			"appointment_type": a.AppointmentType,
			"status":           a.Status,
		},
	}
}

func isActive(a *scheduling.Appointment) bool {
	return a.Status != scheduling.StatusCancelled && a.Status != scheduling.StatusCompleted
}

func appointmentStart(a *scheduling.Appointment, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04", a.AppointmentDate+" "+a.AppointmentTime, loc)
	return t, err == nil
}

// activeCases counts unresolved cases. Savings are what the plan covered
// beyond the member's share.
func activeCases(cases []*claims.Case) ActiveCases {
	var out ActiveCases
	for _, c := range cases {
		if c.Status == claims.CaseResolved {
			continue
		}
		out.Count++
		out.EstimatedSavings += math.Max(c.TotalBilled-c.Amount, 0)
	}
	out.EstimatedSavings = math.Round(out.EstimatedSavings*100) / 100
	return out
}

func latestLab(reports []*labs.LabReport) *LatestLab {
	var latest *labs.LabReport
	for _, r := range reports {
		if latest == nil || reportTime(r).After(reportTime(latest)) {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	out := &LatestLab{ID: latest.ID, Title: reportTitle(latest), Date: reportTime(latest).Format("2006-01-02")}
	for _, p := range latest.Parameters {
		if labs.IsAbnormal(p) {
			out.AbnormalCount++
		}
	}
	return out
}

func recentActivity(reports []*labs.LabReport, cases []*claims.Case, appts []*scheduling.Appointment, now time.Time) []Activity {
	var items []Activity
	for _, r := range reports {
		items = append(items, Activity{
			ID:          "activity-lab-" + r.ID,
			Type:        KindLab,
			Description: "Uploaded lab report: " + reportTitle(r),
			Date:        reportTime(r),
		})
	}
	for _, c := range cases {
		date, err := time.Parse("2006-01-02", c.Date)
		if err != nil {
			date = c.UpdatedAt
		}
		items = append(items, Activity{
			ID:          "activity-case-" + c.ID,
			Type:        KindCase,
			Description: c.Status + " case: " + c.Title,
			Date:        date,
		})
	}
	for _, a := range appts {
		start, ok := appointmentStart(a, now.Location())
		if !ok {
			start = a.CreatedAt
		}
		items = append(items, Activity{
			ID:          "activity-appointment-" + a.ID,
			Type:        KindAppointment,
			Description: "Appointment " + a.Status + " for " + a.AppointmentDate,
			Date:        start,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
	if len(items) > recentShown {
		items = items[:recentShown]
	}
	return items
}
