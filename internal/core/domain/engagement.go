package domain

import "time"

type EngagementStatus string

const (
	EngagementPending    EngagementStatus = "PENDING"
	EngagementIntakeDone EngagementStatus = "INTAKE_DONE"
	EngagementCollecting EngagementStatus = "COLLECTING"
	EngagementReady      EngagementStatus = "READY"
)

var statusRank = map[EngagementStatus]int{
	EngagementPending:    0,
	EngagementIntakeDone: 1,
	EngagementCollecting: 2,
	EngagementReady:      3,
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight returns the completion weight for the priority. Unrecognized
// priorities weigh as medium.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 0.5
	case PriorityLow:
		return 0.15
	default:
		return 0.35
	}
}

type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemReceived ItemStatus = "received"
	ItemComplete ItemStatus = "complete"
)

// ChecklistItem is one expected deliverable. Status and DocumentIDs are
// last-known caches; reconciliation output is authoritative.
type ChecklistItem struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Why                  string     `json:"why"`
	Priority             Priority   `json:"priority"`
	Status               ItemStatus `json:"status"`
	DocumentIDs          []string   `json:"document_ids"`
	ExpectedDocumentType string     `json:"expected_document_type,omitempty"`
}

// ItemReconciliation is the derived status of one checklist item.
type ItemReconciliation struct {
	ItemID      string     `json:"item_id"`
	Status      ItemStatus `json:"status"`
	DocumentIDs []string   `json:"document_ids"`
}

// Reconciliation is the last completion snapshot, fully recomputed and
// replaced on every run. CompletionPercentage is nil for an empty checklist.
type Reconciliation struct {
	CompletionPercentage *int                 `json:"completion_percentage,omitempty"`
	ItemStatuses         []ItemReconciliation `json:"item_statuses"`
	Issues               []string             `json:"issues"`
	Ready                bool                 `json:"ready"`
	Reasons              []string             `json:"reasons,omitempty"`
	RanAt                time.Time            `json:"ran_at"`
}

// AuditEntry is one line in the engagement activity log.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Agent   string    `json:"agent"`
	Trigger string    `json:"trigger"`
	Outcome string    `json:"outcome"`
}

// Engagement is one client's tax-document-collection job. It is a single
// aggregate: checklist, documents and reconciliation are read and written as
// one unit.
type Engagement struct {
	ID               string           `json:"id"`
	ClientName       string           `json:"client_name"`
	ClientEmail      string           `json:"client_email"`
	Status           EngagementStatus `json:"status"`
	TaxYear          int              `json:"tax_year"`
	FilingProfile    string           `json:"filing_profile,omitempty"`
	Checklist        []ChecklistItem  `json:"checklist"`
	Documents        []Document       `json:"documents"`
	Reconciliation   *Reconciliation  `json:"reconciliation,omitempty"`
	Activity         []AuditEntry     `json:"activity"`
	LastActivityAt   time.Time        `json:"last_activity_at"`
	ReminderCount    int              `json:"reminder_count"`
	StorageFolderRef string           `json:"storage_folder_ref,omitempty"`
	StoragePageToken *string          `json:"storage_page_token,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Version backs optimistic concurrency in the store. Not part of the
	// serialized aggregate.
	Version int64 `json:"-"`
}

// IntakeParams opens a new engagement.
type IntakeParams struct {
	ClientName       string `json:"client_name"`
	ClientEmail      string `json:"client_email"`
	TaxYear          int    `json:"tax_year"`
	FilingProfile    string `json:"filing_profile"`
	StorageFolderRef string `json:"storage_folder_ref"`
}

// DocumentByID returns a pointer into Documents, or nil.
func (e *Engagement) DocumentByID(id string) *Document {
	for i := range e.Documents {
		if e.Documents[i].ID == id {
			return &e.Documents[i]
		}
	}
	return nil
}

// HasStorageItem is the ingestion dedupe boundary: once any document row
// references a storageItemId, the file is never re-ingested.
func (e *Engagement) HasStorageItem(storageItemID string) bool {
	for i := range e.Documents {
		if e.Documents[i].StorageItemID == storageItemID {
			return true
		}
	}
	return false
}

// AdvanceStatus moves the engagement status forward. Backward moves are
// ignored: automatic rules only advance.
func (e *Engagement) AdvanceStatus(to EngagementStatus, now time.Time) bool {
	if statusRank[to] <= statusRank[e.Status] {
		return false
	}
	e.Status = to
	e.UpdatedAt = now
	return true
}

// RecordActivity appends one audit entry and refreshes LastActivityAt.
func (e *Engagement) RecordActivity(agent, trigger, outcome string, now time.Time) {
	e.Activity = append(e.Activity, AuditEntry{
		At:      now,
		Agent:   agent,
		Trigger: trigger,
		Outcome: outcome,
	})
	e.LastActivityAt = now
	e.UpdatedAt = now
}

// ApplyReconciliation stores the snapshot and refreshes the per-item caches
// from authoritative output.
func (e *Engagement) ApplyReconciliation(rec Reconciliation) {
	e.Reconciliation = &rec
	byItem := make(map[string]ItemReconciliation, len(rec.ItemStatuses))
	for _, is := range rec.ItemStatuses {
		byItem[is.ItemID] = is
	}
	for i := range e.Checklist {
		if is, ok := byItem[e.Checklist[i].ID]; ok {
			e.Checklist[i].Status = is.Status
			e.Checklist[i].DocumentIDs = is.DocumentIDs
		}
	}
	e.UpdatedAt = rec.RanAt
}
