package models

import "time"

// EmailReport aggregates a user's send history over a date range.
type EmailReport struct {
	UserID      string           `json:"user_id"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	Total       int              `json:"total_emails"`
	Successful  int              `json:"successful_emails"`
	Failed      int              `json:"failed_emails"`
	SuccessRate float64          `json:"success_rate"`
	ByDay       []DailyCount     `json:"emails_by_day"`
	TopContacts []RecipientCount `json:"top_recipients"`
	Recent      []RecentEmail    `json:"recent_emails"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type RecipientCount struct {
	Email string `json:"email"`
	Count int    `json:"count"`
}

type RecentEmail struct {
	Subject   string    `json:"subject"`
	To        []string  `json:"to"`
	Status    string    `json:"status"`
	Provider  string    `json:"provider"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// PlatformSummary aggregates send activity across all users.
type PlatformSummary struct {
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	TotalUsers         int       `json:"total_users"`
	TotalEmailsSent    int       `json:"total_emails_sent"`
	EmailsToday        int       `json:"emails_today"`
	OverallSuccessRate float64   `json:"overall_success_rate"`
}
