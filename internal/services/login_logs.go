package services

import (
	"context"
	"database/sql"

	"github.com/AnshRaj112/wellsync/internal/models"
)

const defaultLoginLogLimit = 500

// PostgresLoginLogs stores login audit records in the login_logs table.
type PostgresLoginLogs struct {
	db *sql.DB
}

func NewPostgresLoginLogs(db *sql.DB) *PostgresLoginLogs {
	return &PostgresLoginLogs{db: db}
}

func (s *PostgresLoginLogs) Record(ctx context.Context, entry models.LoginLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_logs (username, display_name, role, created_at) VALUES ($1, $2, $3, $4)`,
		entry.Username, entry.DisplayName, string(entry.Role), entry.CreatedAt.UTC(),
	)
	return err
}

// Recent returns up to limit records, newest first.
func (s *PostgresLoginLogs) Recent(ctx context.Context, limit int) ([]models.LoginLog, error) {
	if limit <= 0 {
		limit = defaultLoginLogLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, display_name, role, created_at FROM login_logs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.LoginLog{}
	for rows.Next() {
		var (
			entry models.LoginLog
			role  string
		)
		if err := rows.Scan(&entry.Username, &entry.DisplayName, &role, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Role = models.NormalizeRole(role)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
