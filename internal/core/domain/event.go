package domain

// EventType is the closed vocabulary of the dispatcher. Unknown types are
// logged and ignored so newer producers do not crash older consumers.
type EventType string

const (
	EventEngagementCreated EventType = "engagement_created"
	EventIntakeComplete    EventType = "intake_complete"
	EventDocumentUploaded  EventType = "document_uploaded"
	EventDocumentAssessed  EventType = "document_assessed"
	EventStaleEngagement   EventType = "stale_engagement"
	EventCheckCompletion   EventType = "check_completion"
)

// Event is the internal dispatch unit. DocumentID, DocumentType and HasIssues
// only carry meaning for the document events.
type Event struct {
	Type         EventType `json:"type"`
	EngagementID string    `json:"engagement_id"`
	DocumentID   string    `json:"document_id,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	HasIssues    bool      `json:"has_issues,omitempty"`
}

// StorageFile is one entry from a storage sync page.
type StorageFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// SyncPage is one resumable chunk of a storage listing.
type SyncPage struct {
	Files         []StorageFile `json:"files"`
	NextPageToken string        `json:"next_page_token"`
}

// FilePayload is a downloaded file.
type FilePayload struct {
	Bytes    []byte
	MimeType string
	FileName string
	Size     int64
}
