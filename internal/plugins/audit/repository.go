package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// AuditRepository defines the data access contract for the audit log.
type AuditRepository interface {
	Log(ctx context.Context, entry *Entry) error

	// List returns entries newest first and the total count.
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts an entry and sets entry.ID. Nil details are stored as NULL.
func (r *auditRepository) Log(ctx context.Context, entry *Entry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, action, event_id, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ActorID, entry.Action, entry.EventID, details, entry.Created,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List joins users so each entry carries the actor's email.
func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.actor_id, a.action, a.event_id, a.details, a.created_at,
		        COALESCE(u.email, '')
		 FROM audit_log a
		 LEFT JOIN users u ON u.id = a.actor_id
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EventID, &details, &e.Created, &e.ActorEmail); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				// Keep the feed readable when a row holds bad JSON.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, total, nil
}
