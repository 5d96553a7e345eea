package translog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mailgate/internal/config"
	"mailgate/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

// Recorder is the fire-and-forget sink for send attempts plus the read side
// for analytics. Record never fails the send path.
type Recorder interface {
	Record(ctx context.Context, msg *models.Message, res *models.SendResult)
	UserReport(ctx context.Context, userID string, start, end time.Time, limit int) (*models.EmailReport, error)
	PlatformSummary(ctx context.Context, start, end time.Time) (*models.PlatformSummary, error)
}

// Logger records send attempts in MySQL for analytics.
type Logger struct {
	db *sql.DB
}

func NewLogger(cfg *config.MySQLConfig) (*Logger, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	l := &Logger{db: db}
	if err := l.ensureSchema(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Logger) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS email_logs (
			id            VARCHAR(36)  NOT NULL PRIMARY KEY,
			user_id       VARCHAR(255) NOT NULL DEFAULT '',
			from_email    VARCHAR(320) NOT NULL DEFAULT '',
			to_emails     TEXT         NOT NULL,
			subject       VARCHAR(998) NOT NULL DEFAULT '',
			body_preview  VARCHAR(100) NOT NULL DEFAULT '',
			body_type     VARCHAR(8)   NOT NULL DEFAULT 'text',
			provider      VARCHAR(32)  NOT NULL DEFAULT '',
			message_id    VARCHAR(255) NOT NULL DEFAULT '',
			status        VARCHAR(16)  NOT NULL,
			error_message TEXT,
			sent_at       DATETIME     NOT NULL,
			INDEX idx_user_sent (user_id, sent_at),
			INDEX idx_status (status)
		)`,
		`CREATE TABLE IF NOT EXISTS email_log_recipients (
			log_id VARCHAR(36)  NOT NULL,
			email  VARCHAR(320) NOT NULL,
			INDEX idx_log (log_id),
			INDEX idx_email (email)
		)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create analytics schema: %w", err)
		}
	}
	return nil
}

// Record logs one send attempt. Failures are logged and swallowed: a broken
// analytics store must not fail a send that already happened.
func (l *Logger) Record(ctx context.Context, msg *models.Message, res *models.SendResult) {
	toEmails, _ := json.Marshal(msg.To)

	bodyType := "text"
	if msg.HTML {
		bodyType = "html"
	}

	preview := msg.Body
	if len(preview) > 100 {
		preview = preview[:100]
	}

	var errMsg sql.NullString
	if res.Error != "" {
		errMsg = sql.NullString{String: res.Error, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO email_logs (
			id, user_id, from_email, to_emails, subject, body_preview,
			body_type, provider, message_id, status, error_message, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		msg.UserID,
		msg.From,
		string(toEmails),
		msg.Subject,
		preview,
		bodyType,
		res.Provider,
		res.MessageID,
		string(res.Status),
		errMsg,
		res.Timestamp.UTC(),
	)
	if err != nil {
		log.Printf("Failed to log email transaction for user %s: %v", msg.UserID, err)
		return
	}

	for _, email := range msg.To {
		if _, err := l.db.ExecContext(ctx,
			"INSERT INTO email_log_recipients (log_id, email) VALUES (?, ?)",
			msg.ID, email,
		); err != nil {
			log.Printf("Failed to log recipient %s: %v", email, err)
		}
	}

	log.Printf("Logged email for user %s: status=%s", msg.UserID, res.Status)
}

// UserReport aggregates one user's send history over [start, end].
func (l *Logger) UserReport(ctx context.Context, userID string, start, end time.Time, limit int) (*models.EmailReport, error) {
	report := &models.EmailReport{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		ByDay:       []models.DailyCount{},
		TopContacts: []models.RecipientCount{},
		Recent:      []models.RecentEmail{},
	}

	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(status = 'success'), 0),
			COALESCE(SUM(status = 'failed'), 0)
		FROM email_logs
		WHERE user_id = ? AND sent_at BETWEEN ? AND ?
	`, userID, start, end).Scan(&report.Total, &report.Successful, &report.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate email totals: %w", err)
	}

	if report.Total > 0 {
		report.SuccessRate = float64(report.Successful) / float64(report.Total)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT DATE(sent_at) AS day, COUNT(*)
		FROM email_logs
		WHERE user_id = ? AND sent_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc models.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		report.ByDay = append(report.ByDay, dc)
	}

	recipientRows, err := l.db.QueryContext(ctx, `
		SELECT r.email, COUNT(*)
		FROM email_log_recipients r
		JOIN email_logs e ON e.id = r.log_id
		WHERE e.user_id = ? AND e.sent_at BETWEEN ? AND ?
		GROUP BY r.email
		ORDER BY COUNT(*) DESC
		LIMIT 10
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top recipients: %w", err)
	}
	defer recipientRows.Close()

	for recipientRows.Next() {
		var rc models.RecipientCount
		if err := recipientRows.Scan(&rc.Email, &rc.Count); err != nil {
			return nil, err
		}
		report.TopContacts = append(report.TopContacts, rc)
	}

	recentRows, err := l.db.QueryContext(ctx, `
		SELECT subject, to_emails, status, provider, message_id, sent_at
		FROM email_logs
		WHERE user_id = ? AND sent_at BETWEEN ? AND ?
		ORDER BY sent_at DESC
		LIMIT ?
	`, userID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent emails: %w", err)
	}
	defer recentRows.Close()

	for recentRows.Next() {
		var re models.RecentEmail
		var toEmails string
		if err := recentRows.Scan(&re.Subject, &toEmails, &re.Status, &re.Provider, &re.MessageID, &re.SentAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(toEmails), &re.To)
		report.Recent = append(report.Recent, re)
	}

	return report, nil
}

// PlatformSummary aggregates send activity across all users over [start, end].
func (l *Logger) PlatformSummary(ctx context.Context, start, end time.Time) (*models.PlatformSummary, error) {
	summary := &models.PlatformSummary{StartDate: start, EndDate: end}

	var successful int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id), COUNT(*),
			COALESCE(SUM(status = 'success'), 0)
		FROM email_logs
		WHERE sent_at BETWEEN ? AND ?
	`, start, end).Scan(&summary.TotalUsers, &summary.TotalEmailsSent, &successful)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate platform summary: %w", err)
	}

	if summary.TotalEmailsSent > 0 {
		summary.OverallSuccessRate = float64(successful) / float64(summary.TotalEmailsSent)
	}

	err = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM email_logs WHERE DATE(sent_at) = CURDATE()
	`).Scan(&summary.EmailsToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's emails: %w", err)
	}

	return summary, nil
}

func (l *Logger) Close() error {
	return l.db.Close()
}
