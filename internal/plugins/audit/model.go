// Package audit records every subitem timeline save attempt made through the
// widget. Each attempt is captured as an AuditEntry and persisted to the
// timeline_audit table so operators can see who moved which subitem, to what
// range, and whether the platform accepted the write.
//
// This is an optional plugin -- it does not modify board data, only records
// observations about writes made by the timeline widget.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// ActionTimelineSaved is logged when the platform confirmed a write.
	ActionTimelineSaved = "subitem_timeline.saved"

	// ActionTimelineRejected is logged when the platform refused a write or
	// the request failed in transit.
	ActionTimelineRejected = "subitem_timeline.rejected"
)

// AuditEntry represents a single recorded save attempt. ItemID is the parent
// item the widget was viewing; SubitemID is the record written. Value is the
// encoded timeline payload that was sent.
type AuditEntry struct {
	ID        int64          `json:"id"`
	ItemID    string         `json:"itemId"`
	SubitemID string         `json:"subitemId"`
	UserID    string         `json:"userId,omitempty"`
	AccountID string         `json:"accountId,omitempty"`
	Action    string         `json:"action"`
	Value     string         `json:"value"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
