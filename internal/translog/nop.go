package translog

import (
	"context"
	"time"

	"mailgate/pkg/models"
)

// NopRecorder is used when MySQL is unavailable: sends proceed, analytics
// return empty reports.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, msg *models.Message, res *models.SendResult) {}

func (NopRecorder) UserReport(ctx context.Context, userID string, start, end time.Time, limit int) (*models.EmailReport, error) {
	return &models.EmailReport{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		ByDay:       []models.DailyCount{},
		TopContacts: []models.RecipientCount{},
		Recent:      []models.RecentEmail{},
	}, nil
}

func (NopRecorder) PlatformSummary(ctx context.Context, start, end time.Time) (*models.PlatformSummary, error) {
	return &models.PlatformSummary{StartDate: start, EndDate: end}, nil
}
