package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/eventboard/eventboard/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB/MySQL error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// EventRepository defines the data access contract for events and votes.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id int64) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter SearchFilter) ([]Event, int, error)

	// Votes.
	HasVote(ctx context.Context, userID, eventID int64, kind VoteKind) (bool, error)
	AddVote(ctx context.Context, userID, eventID int64, kind VoteKind) error

	// Moderation and reporting.
	SetDisplayStatus(ctx context.Context, id int64, visible bool) error
	CountByPaidStatus(ctx context.Context, from, to time.Time) (*Report, error)
	ActivateForDate(ctx context.Context, day time.Time) (int64, error)
}

// eventRepository implements EventRepository with MariaDB queries.
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, title, description, email, phone, address, city, organizer_details,
	paid_status, display_status, event_image, image_thumbnail, event_date,
	like_count, dislike_count, created_at, updated_at`

// Create inserts an event and sets event.ID.
func (r *eventRepository) Create(ctx context.Context, e *Event) error {
	query := `INSERT INTO events
		(title, description, email, phone, address, city, organizer_details,
		 paid_status, display_status, event_image, image_thumbnail, event_date,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.Email, e.Phone, e.Address, e.City, e.OrganizerDetails,
		e.PaidStatus, e.DisplayStatus, e.EventImage, e.ImageThumbnail, e.EventDate,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	e.ID = id
	return nil
}

// FindByID retrieves an event. Returns apperror.NotFound if missing.
func (r *eventRepository) FindByID(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

// Update writes every editable column of e. Counters are left alone so a
// concurrent vote is never overwritten. Returns apperror.NotFound if the
// row was deleted meanwhile.
func (r *eventRepository) Update(ctx context.Context, e *Event) error {
	query := `UPDATE events SET
		title = ?, description = ?, email = ?, phone = ?, address = ?, city = ?,
		organizer_details = ?, paid_status = ?, display_status = ?,
		event_image = ?, image_thumbnail = ?, event_date = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.Email, e.Phone, e.Address, e.City,
		e.OrganizerDetails, e.PaidStatus, e.DisplayStatus,
		e.EventImage, e.ImageThumbnail, e.EventDate, e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	// ClientFoundRows makes this the matched count, so 0 means the row is gone.
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("Event not found")
	}
	return nil
}

// Delete removes an event; its votes go with it via ON DELETE CASCADE.
func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("Event not found")
	}
	return nil
}

// Search returns one page of matching events, newest first, and the total
// number of matches.
func (r *eventRepository) Search(ctx context.Context, f SearchFilter) ([]Event, int, error) {
	where, args := buildSearchWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, *e)
	}
	return events, total, rows.Err()
}

// buildSearchWhere turns f into a WHERE clause and its arguments. Filters
// are ANDed and an absent filter adds no condition.
func buildSearchWhere(f SearchFilter) (string, []any) {
	var conds []string
	var args []any

	if f.VisibleOnly {
		conds = append(conds, "display_status = TRUE")
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(city) LIKE ?)")
		args = append(args, p, p)
	}
	if f.FilterDate != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.FilterDate)
	}
	if f.FilterCity != "" {
		conds = append(conds, "LOWER(city) LIKE ?")
		args = append(args, containsPattern(f.FilterCity))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// --- Votes ---

// HasVote reports whether the user already cast a vote of kind.
func (r *eventRepository) HasVote(ctx context.Context, userID, eventID int64, kind VoteKind) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = ? AND event_id = ? AND kind = ?)`,
		userID, eventID, string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking vote: %w", err)
	}
	return exists, nil
}

// AddVote records the vote and bumps the matching counter in one
// transaction. The unique (user_id, event_id, kind) index turns a racing
// duplicate into a Conflict.
func (r *eventRepository) AddVote(ctx context.Context, userID, eventID int64, kind VoteKind) error {
	counter := "like_count"
	if kind == VoteDislike {
		counter = "dislike_count"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning vote transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO likes (user_id, event_id, kind, created_at) VALUES (?, ?, ?, UTC_TIMESTAMP())`,
		userID, eventID, string(kind))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict(fmt.Sprintf("You have already %sd this event", kind))
		}
		return fmt.Errorf("inserting vote: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE events SET `+counter+` = `+counter+` + 1 WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("incrementing %s: %w", counter, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("Event not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vote: %w", err)
	}
	return nil
}

// --- Moderation and reporting ---

// SetDisplayStatus shows or hides an event.
func (r *eventRepository) SetDisplayStatus(ctx context.Context, id int64, visible bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET display_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, visible, id)
	if err != nil {
		return fmt.Errorf("updating display status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("Event not found")
	}
	return nil
}

// CountByPaidStatus counts events created in [from, to).
func (r *eventRepository) CountByPaidStatus(ctx context.Context, from, to time.Time) (*Report, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN paid_status = TRUE THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN paid_status = FALSE THEN 1 ELSE 0 END), 0)
		FROM events WHERE created_at >= ? AND created_at < ?`

	rep := &Report{}
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&rep.PaidEvents, &rep.UnpaidEvents); err != nil {
		return nil, fmt.Errorf("counting events by paid status: %w", err)
	}
	return rep, nil
}

// ActivateForDate makes hidden events dated day visible and returns how
// many changed.
func (r *eventRepository) ActivateForDate(ctx context.Context, day time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET display_status = TRUE, updated_at = UTC_TIMESTAMP()
		 WHERE display_status = FALSE AND event_date = ?`, day.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("activating events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

// --- Helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Email, &e.Phone, &e.Address, &e.City,
		&e.OrganizerDetails, &e.PaidStatus, &e.DisplayStatus, &e.EventImage,
		&e.ImageThumbnail, &e.EventDate, &e.LikeCount, &e.DislikeCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring LIKE pattern; the
// column side is lowered in SQL.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
