package domain

import "time"

type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "in_progress"
	ProcessingClassified ProcessingStatus = "classified"
	ProcessingFailed     ProcessingStatus = "error"
)

// Sentinel documentType values kept for wire compatibility. Decisions should
// go through the ProcessingStatus helpers instead of comparing these directly.
const (
	DocTypePending = "PENDING"
	DocTypeFailed  = "PROCESSING_ERROR"
	DocTypeUnknown = "UNKNOWN"
)

// Override records a manual reclassification.
type Override struct {
	OriginalType string `json:"original_type"`
	Reason       string `json:"reason"`
}

// Document is one uploaded file and its processing record.
type Document struct {
	ID                  string           `json:"id"`
	FileName            string           `json:"file_name"`
	StorageItemID       string           `json:"storage_item_id"`
	MimeType            string           `json:"mime_type,omitempty"`
	DocumentType        string           `json:"document_type"`
	Confidence          float64          `json:"confidence"`
	TaxYear             *int             `json:"tax_year,omitempty"`
	Issues              []string         `json:"issues"`
	IssueDetails        string           `json:"issue_details,omitempty"`
	ProcessingStatus    ProcessingStatus `json:"processing_status"`
	ProcessingStartedAt *time.Time       `json:"processing_started_at,omitempty"`
	ClassifiedAt        *time.Time       `json:"classified_at,omitempty"`
	Approved            *bool            `json:"approved,omitempty"`
	Override            *Override        `json:"override,omitempty"`
	Archived            bool             `json:"archived,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NewPlaceholderDocument materializes a just-discovered file before any
// processing has touched it.
func NewPlaceholderDocument(id, fileName, storageItemID, mimeType string, now time.Time) Document {
	return Document{
		ID:               id,
		FileName:         fileName,
		StorageItemID:    storageItemID,
		MimeType:         mimeType,
		DocumentType:     DocTypePending,
		Issues:           []string{},
		ProcessingStatus: ProcessingPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (d *Document) IsClassified() bool {
	return d.ProcessingStatus == ProcessingClassified
}

func (d *Document) IsFailed() bool {
	return d.ProcessingStatus == ProcessingFailed
}

// IsApproved reports the tri-state approved flag as a hard yes.
func (d *Document) IsApproved() bool {
	return d.Approved != nil && *d.Approved
}

// HasUnresolvedIssues is true when the document carries issues that no human
// has approved away.
func (d *Document) HasUnresolvedIssues() bool {
	return len(d.Issues) > 0 && !d.IsApproved()
}

// StartProcessing moves pending -> in_progress, stamping the start time.
// Returns false when the document is not in a startable state.
func (d *Document) StartProcessing(now time.Time) bool {
	if d.ProcessingStatus != ProcessingPending {
		return false
	}
	d.ProcessingStatus = ProcessingInProgress
	d.ProcessingStartedAt = &now
	d.UpdatedAt = now
	return true
}

// ApplyClassification writes a successful classification outcome.
func (d *Document) ApplyClassification(result ClassificationResult, now time.Time) {
	d.DocumentType = result.DocumentType
	d.Confidence = result.Confidence
	d.TaxYear = result.TaxYear
	if result.Issues == nil {
		d.Issues = []string{}
	} else {
		d.Issues = result.Issues
	}
	d.IssueDetails = RenderIssueDetails(d.Issues)
	d.ProcessingStatus = ProcessingClassified
	d.ProcessingStartedAt = nil
	d.ClassifiedAt = &now
	d.UpdatedAt = now
}

// MarkFailed records a classification failure. Issues stay untouched.
func (d *Document) MarkFailed(now time.Time) {
	d.DocumentType = DocTypeFailed
	d.ProcessingStatus = ProcessingFailed
	d.ProcessingStartedAt = nil
	d.UpdatedAt = now
}

// IsStuck reports whether an in_progress document has exceeded the stuck
// threshold, indicating an interrupted worker.
func (d *Document) IsStuck(now time.Time, threshold time.Duration) bool {
	if d.ProcessingStatus != ProcessingInProgress || d.ProcessingStartedAt == nil {
		return false
	}
	return now.Sub(*d.ProcessingStartedAt) > threshold
}

// NeedsRecovery selects documents the sweep must reset: stuck in_progress
// work and failed classifications.
func (d *Document) NeedsRecovery(now time.Time, stuckThreshold time.Duration) bool {
	return d.IsStuck(now, stuckThreshold) || d.IsFailed()
}

// ResetForReprocessing returns the document to a clean pending state so a
// fresh document_uploaded event can pick it up.
func (d *Document) ResetForReprocessing(now time.Time) {
	d.DocumentType = DocTypePending
	d.ProcessingStatus = ProcessingPending
	d.ProcessingStartedAt = nil
	d.Issues = []string{}
	d.IssueDetails = ""
	d.ClassifiedAt = nil
	d.UpdatedAt = now
}

// ClassificationResult is what the classification collaborator returns.
// Issues are encoded issue strings.
type ClassificationResult struct {
	DocumentType string   `json:"document_type"`
	Confidence   float64  `json:"confidence"`
	TaxYear      *int     `json:"tax_year"`
	Issues       []string `json:"issues"`
}
