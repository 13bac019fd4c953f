package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/taxintake/internal/core/domain"
)

// ChecklistGenerator asks the model to draft the expected-deliverables
// checklist for a new engagement.
type ChecklistGenerator struct {
	client *Client
}

func NewChecklistGenerator(client *Client) *ChecklistGenerator {
	return &ChecklistGenerator{client: client}
}

func (g *ChecklistGenerator) Generate(ctx context.Context, e *domain.Engagement) ([]domain.ChecklistItem, error) {
	respText, err := g.client.generateJSON(ctx, buildChecklistPrompt(e))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []struct {
			Title        string `json:"title"`
			Why          string `json:"why"`
			Priority     string `json:"priority"`
			DocumentType string `json:"document_type"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &parsed); err != nil {
		return nil, fmt.Errorf("parse checklist json: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("checklist generation returned no items")
	}

	items := make([]domain.ChecklistItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		priority := domain.Priority(it.Priority)
		switch priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			priority = domain.PriorityMedium
		}
		items = append(items, domain.ChecklistItem{
			ID:                   uuid.NewString(),
			Title:                it.Title,
			Why:                  it.Why,
			Priority:             priority,
			Status:               domain.ItemPending,
			DocumentIDs:          []string{},
			ExpectedDocumentType: it.DocumentType,
		})
	}
	return items, nil
}

func buildChecklistPrompt(e *domain.Engagement) string {
	prompt := fmt.Sprintf(`You are a tax preparation assistant.
Draft the list of documents a client must supply for their %d tax return.
Return a strict JSON object: {"items": [{"title": string, "why": string,
"priority": "high"|"medium"|"low", "document_type": string}]}.
document_type must be one of: `, e.TaxYear)
	for idx, dt := range knownDocumentTypes {
		if idx > 0 {
			prompt += ", "
		}
		prompt += dt
	}
	if e.FilingProfile != "" {
		prompt += fmt.Sprintf("\n\nFiling profile: %s", e.FilingProfile)
	}
	prompt += fmt.Sprintf("\nToday: %s\n", time.Now().UTC().Format("2006-01-02"))
	return prompt
}
