package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mailgate/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore keeps credential blobs in a relational table keyed by
// (subject_id, provider). The blob itself stays opaque to SQL.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(cfg *config.MySQLConfig) (*MySQLStore, error) {
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

	store := &MySQLStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *MySQLStore) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS user_credentials (
			subject_id VARCHAR(255) NOT NULL,
			provider   VARCHAR(64)  NOT NULL,
			data       BLOB         NOT NULL,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (subject_id, provider)
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create user_credentials table: %w", err)
	}
	return nil
}

func (s *MySQLStore) Get(ctx context.Context, subjectID, provider string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM user_credentials WHERE subject_id = ? AND provider = ?",
		subjectID, provider,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UnavailableError{Backend: "mysql", Err: err}
	}

	return data, nil
}

func (s *MySQLStore) Put(ctx context.Context, subjectID, provider string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_credentials (subject_id, provider, data)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data)
	`, subjectID, provider, data)

	if err != nil {
		return &UnavailableError{Backend: "mysql", Err: err}
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, subjectID, provider string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_credentials WHERE subject_id = ? AND provider = ?",
		subjectID, provider,
	)
	if err != nil {
		return &UnavailableError{Backend: "mysql", Err: err}
	}
	return nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
