package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

// maxHistoryEntries caps the number of history entries returned for a
// single subitem or item to prevent unbounded result sets.
const maxHistoryEntries = 100

// AuditService handles business logic for the audit log. It validates inputs,
// enforces limits, and delegates persistence to the repository.
type AuditService interface {
	// Log records an audit entry. Designed to be fire-and-forget friendly:
	// errors are logged but callers may choose to ignore them since audit
	// failures should not block the primary operation.
	Log(ctx context.Context, entry *AuditEntry) error

	// SubitemHistory returns the recent save history for one subitem.
	SubitemHistory(ctx context.Context, subitemID string) ([]AuditEntry, error)

	// ItemHistory returns the recent save history under one parent item.
	ItemHistory(ctx context.Context, itemID string) ([]AuditEntry, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an audit entry. Missing required fields cause
// a validation error. Logging failures are recorded via slog so the caller
// can treat this as fire-and-forget when appropriate.
func (s *auditService) Log(ctx context.Context, entry *AuditEntry) error {
	if entry.SubitemID == "" {
		return apperror.NewBadRequest("subitem ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("subitem_id", entry.SubitemID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}

	return nil
}

// SubitemHistory returns the recent save history for a single subitem.
// Limited to maxHistoryEntries to prevent excessively large responses.
func (s *auditService) SubitemHistory(ctx context.Context, subitemID string) ([]AuditEntry, error) {
	if subitemID == "" {
		return nil, apperror.NewBadRequest("subitem ID is required")
	}

	entries, err := s.repo.ListBySubitem(ctx, subitemID, maxHistoryEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing subitem history: %w", err))
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

// ItemHistory returns the recent save history recorded under a parent item.
func (s *auditService) ItemHistory(ctx context.Context, itemID string) ([]AuditEntry, error) {
	if itemID == "" {
		return nil, apperror.NewBadRequest("item ID is required")
	}

	entries, err := s.repo.ListByItem(ctx, itemID, maxHistoryEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing item history: %w", err))
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
