package dashboard

import "time"

// Dashboard is the home page summary for one user.
type Dashboard struct {
	UserID         string      `json:"user_id"`
	GeneratedAt    time.Time   `json:"generated_at"`
	NeedsAttention []Card      `json:"needs_attention"`
	QuickAccess    QuickAccess `json:"quick_access"`
}

// Card kinds.
const (
	KindLab         = "lab"
	KindCase        = "case"
	KindAppointment = "appointment"
)

// Card is one item the user should act on.
type Card struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type QuickAccess struct {
	UpcomingAppointments []UpcomingAppointment `json:"upcoming_appointments"`
	ActiveCases          ActiveCases           `json:"active_cases"`
	LatestLab            *LatestLab            `json:"latest_lab,omitempty"`
	RecentActivity       []Activity            `json:"recent_activity,omitempty"`
}

type UpcomingAppointment struct {
	ID       string `json:"id"`
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

type ActiveCases struct {
	Count            int     `json:"count"`
	EstimatedSavings float64 `json:"estimated_savings"`
}

type LatestLab struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	AbnormalCount int    `json:"abnormal_count"`
}

type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}
