package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tutorui/internal/util/initgate"
)

type PostgresStore struct {
	db     *sql.DB
	schema initgate.Gate
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and pings a pgx-backed database handle.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	return s.schema.Do(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS interaction_events (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    component_type TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL DEFAULT '',
    data JSONB NOT NULL DEFAULT '{}'::jsonb,
    event_ts DOUBLE PRECISION NOT NULL DEFAULT 0,
    acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_interaction_events_user ON interaction_events(user_id, seq DESC);
`)
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	rec, err := normalizeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	data := rec.Event.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO interaction_events (id, user_id, component_type, action, data, event_ts, acknowledged, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`, rec.ID, rec.UserID, rec.Event.ComponentType, rec.Event.Action, string(raw), rec.Event.Timestamp, rec.Acknowledged, rec.CreatedAt)
	return err
}

func (s *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, component_type, action, data, event_ts, acknowledged, created_at
FROM interaction_events WHERE user_id=$1 ORDER BY seq DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Event.ComponentType, &rec.Event.Action, &raw, &rec.Event.Timestamp, &rec.Acknowledged, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Event.Data); err != nil {
				return nil, fmt.Errorf("decode event %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
