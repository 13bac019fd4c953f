// Package logmail is the fire-and-log notifier: every send is a structured
// log line. A real mail adapter implements the same port; the core never
// retries sends either way.
package logmail

import (
	"context"
	"log/slog"

	"github.com/clearledger/taxintake/internal/core/domain"
)

type Notifier struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) NotifyChecklistReady(_ context.Context, e *domain.Engagement) error {
	n.log.Info("notify_checklist_ready",
		"engagement_id", e.ID,
		"client", e.ClientName,
		"item_count", len(e.Checklist),
	)
	return nil
}

func (n *Notifier) NotifyIssues(_ context.Context, e *domain.Engagement, doc *domain.Document) error {
	actions := make([]string, 0, len(doc.Issues))
	for _, raw := range doc.Issues {
		actions = append(actions, domain.SuggestedAction(domain.DecodeIssue(raw)))
	}
	n.log.Info("notify_document_issues",
		"engagement_id", e.ID,
		"client", e.ClientName,
		"document_id", doc.ID,
		"file_name", doc.FileName,
		"issue_count", len(doc.Issues),
		"suggested_actions", actions,
	)
	return nil
}

func (n *Notifier) NotifyReady(_ context.Context, e *domain.Engagement) error {
	pct := 0
	if e.Reconciliation != nil && e.Reconciliation.CompletionPercentage != nil {
		pct = *e.Reconciliation.CompletionPercentage
	}
	n.log.Info("notify_engagement_ready",
		"engagement_id", e.ID,
		"client", e.ClientName,
		"completion_pct", pct,
	)
	return nil
}

func (n *Notifier) NotifyReminder(_ context.Context, e *domain.Engagement) error {
	n.log.Info("notify_reminder",
		"engagement_id", e.ID,
		"client", e.ClientName,
		"reminder_count", e.ReminderCount,
	)
	return nil
}
