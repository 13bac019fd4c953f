package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// AssessOutcome is the classification outcome the dispatcher folds into the
// synthesized document_assessed event.
type AssessOutcome struct {
	DocumentID   string
	DocumentType string
	HasIssues    bool
}

// AssessDocumentUseCase drives one document through the processing state
// machine: start, classify, terminal success or failure. Collaborator
// failures never escape as errors; they land the document in the error state
// and the chain completes with an UNKNOWN outcome.
type AssessDocumentUseCase struct {
	repo       ports.EngagementRepository
	storage    ports.StorageProvider
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	log        *slog.Logger
	now        func() time.Time
}

func NewAssessDocumentUseCase(
	repo ports.EngagementRepository,
	storage ports.StorageProvider,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	log *slog.Logger,
) *AssessDocumentUseCase {
	return &AssessDocumentUseCase{
		repo:       repo,
		storage:    storage,
		extractor:  extractor,
		classifier: classifier,
		log:        log,
		now:        time.Now,
	}
}

// Assess processes one uploaded document. Only repository failures and
// missing records surface as errors; everything else resolves to an outcome.
func (uc *AssessDocumentUseCase) Assess(ctx context.Context, engagementID, documentID string) (AssessOutcome, error) {
	started, doc, expectedYear, err := uc.start(ctx, engagementID, documentID)
	if err != nil {
		return AssessOutcome{}, err
	}
	if !started {
		// Already classified (idempotent re-dispatch) or another worker owns
		// it; report the current state without touching the record.
		return AssessOutcome{
			DocumentID:   documentID,
			DocumentType: doc.DocumentType,
			HasIssues:    doc.IsClassified() && len(doc.Issues) > 0,
		}, nil
	}

	result, classifyErr := uc.classify(ctx, doc, expectedYear)
	if classifyErr != nil {
		uc.log.Warn("assessment_failed",
			"engagement_id", engagementID,
			"document_id", documentID,
			"error", classifyErr,
		)
		if _, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
			d := e.DocumentByID(documentID)
			if d == nil {
				return domain.WrapError(domain.ErrDocumentNotFound, "mark failed", fmt.Errorf("document %s", documentID))
			}
			d.MarkFailed(uc.now().UTC())
			return nil
		}); err != nil {
			return AssessOutcome{}, err
		}
		return AssessOutcome{
			DocumentID:   documentID,
			DocumentType: domain.DocTypeUnknown,
			HasIssues:    false,
		}, nil
	}

	if _, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		d := e.DocumentByID(documentID)
		if d == nil {
			return domain.WrapError(domain.ErrDocumentNotFound, "apply classification", fmt.Errorf("document %s", documentID))
		}
		d.ApplyClassification(result, uc.now().UTC())
		return nil
	}); err != nil {
		return AssessOutcome{}, err
	}

	uc.log.Info("document_classified",
		"engagement_id", engagementID,
		"document_id", documentID,
		"document_type", result.DocumentType,
		"confidence", result.Confidence,
		"issue_count", len(result.Issues),
	)
	return AssessOutcome{
		DocumentID:   documentID,
		DocumentType: result.DocumentType,
		HasIssues:    len(result.Issues) > 0,
	}, nil
}

// start performs the pending -> in_progress transition. Returns started=false
// when the document is not in a startable state.
func (uc *AssessDocumentUseCase) start(ctx context.Context, engagementID, documentID string) (bool, *domain.Document, int, error) {
	started := false
	expectedYear := 0
	var snapshot domain.Document
	_, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		d := e.DocumentByID(documentID)
		if d == nil {
			return domain.WrapError(domain.ErrDocumentNotFound, "start assessment", fmt.Errorf("document %s", documentID))
		}
		started = d.StartProcessing(uc.now().UTC())
		snapshot = *d
		expectedYear = e.TaxYear
		if !started {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return false, nil, 0, err
	}
	return started, &snapshot, expectedYear, nil
}

// classify runs the external pipeline: download, extract, classify. Each step
// is an opaque async boundary; any failure is a classification failure.
func (uc *AssessDocumentUseCase) classify(ctx context.Context, doc *domain.Document, expectedYear int) (domain.ClassificationResult, error) {
	payload, err := uc.storage.Download(ctx, doc.StorageItemID)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("download %s: %w", doc.StorageItemID, err)
	}

	text, err := uc.extractor.Extract(ctx, payload.FileName, payload.MimeType, payload.Bytes)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("extract text: %w", err)
	}

	result, err := uc.classifier.Classify(ctx, text, doc.FileName, expectedYear)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("classify document: %w", err)
	}
	return result, nil
}
