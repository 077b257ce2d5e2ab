package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventboard/eventboard/internal/apperror"
)

// AuditService handles business logic for the audit log.
type AuditService interface {
	// Log validates and stores an entry. Callers may ignore the error; it
	// has already been logged.
	Log(ctx context.Context, entry *Entry) error

	// Activity returns one page of the feed. Pages are 1-indexed.
	Activity(ctx context.Context, page int) (*ActivityPage, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
	now  func() time.Time
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo, now: time.Now}
}

func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry.ActorID < 1 {
		return apperror.NewBadRequest("actor ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if entry.Created.IsZero() {
		entry.Created = s.now().UTC()
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.Int64("actor_id", entry.ActorID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

func (s *auditService) Activity(ctx context.Context, page int) (*ActivityPage, error) {
	if page < 1 {
		page = 1
	}

	entries, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing activity: %w", err))
	}
	if entries == nil {
		entries = []Entry{}
	}

	return &ActivityPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}
