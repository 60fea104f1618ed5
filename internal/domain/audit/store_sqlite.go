package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Insert(ctx context.Context, evt Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, textOrNil(evt.Before), textOrNil(evt.After), evt.RequestID, evt.IP,
		evt.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildQuery(filter, func(int) string { return "?" })
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			evt           Event
			createdAt     string
			before, after sql.NullString
		)
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &createdAt, &before, &after); err != nil {
			return nil, err
		}
		if evt.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		if before.Valid {
			evt.Before = []byte(before.String)
		}
		if after.Valid {
			evt.After = []byte(after.String)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func textOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
