package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRepository defines the data access contract for audit log operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AuditRepository interface {
	// Log inserts a new audit entry into the database.
	Log(ctx context.Context, entry *AuditEntry) error

	// ListBySubitem returns the most recent audit entries for one subitem,
	// most recent first.
	ListBySubitem(ctx context.Context, subitemID string, limit int) ([]AuditEntry, error)

	// ListByItem returns the most recent audit entries for every subitem of
	// one parent item, most recent first.
	ListByItem(ctx context.Context, itemID string, limit int) ([]AuditEntry, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new audit entry. The details map is serialized to JSON
// before storage. Nil details are stored as SQL NULL.
func (r *auditRepository) Log(ctx context.Context, entry *AuditEntry) error {
	query := `INSERT INTO timeline_audit (item_id, subitem_id, user_id, account_id, action, value, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.ItemID, entry.SubitemID, entry.UserID, entry.AccountID,
		entry.Action, entry.Value, detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListBySubitem returns the most recent audit entries for a specific subitem.
func (r *auditRepository) ListBySubitem(ctx context.Context, subitemID string, limit int) ([]AuditEntry, error) {
	query := `SELECT id, item_id, subitem_id, user_id, account_id, action, value, details, created_at
	          FROM timeline_audit
	          WHERE subitem_id = ?
	          ORDER BY created_at DESC, id DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, subitemID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing subitem audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// ListByItem returns the most recent audit entries recorded under a parent item.
func (r *auditRepository) ListByItem(ctx context.Context, itemID string, limit int) ([]AuditEntry, error) {
	query := `SELECT id, item_id, subitem_id, user_id, account_id, action, value, details, created_at
	          FROM timeline_audit
	          WHERE item_id = ?
	          ORDER BY created_at DESC, id DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing item audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// scanAuditRows scans rows from a timeline_audit query into AuditEntry slices.
// Expects columns: id, item_id, subitem_id, user_id, account_id, action,
// value, details, created_at.
func scanAuditRows(rows *sql.Rows) ([]AuditEntry, error) {
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.ItemID, &e.SubitemID, &e.UserID, &e.AccountID,
			&e.Action, &e.Value, &detailsJSON, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// Deserialize JSON details if present.
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the entry, flag the details.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
