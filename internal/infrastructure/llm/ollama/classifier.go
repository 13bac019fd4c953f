package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/clearledger/taxintake/internal/core/domain"
)

// Classifier implements ports.DocumentClassifier on top of the ollama client.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// knownDocumentTypes anchors the model to the labels the checklist templates
// use; the model may still return a label outside this list.
var knownDocumentTypes = []string{
	"W-2", "1099-INT", "1099-DIV", "1099-B", "1099-NEC", "1099-MISC", "1099-R",
	"K-1", "1098", "1098-T", "1098-E", "W-9", "property_tax_statement",
	"charitable_receipt", "medical_expense_summary", "prior_year_return",
	"bank_statement", "brokerage_statement", "business_income_summary",
}

func (c *Classifier) Classify(ctx context.Context, text, fileName string, expectedTaxYear int) (domain.ClassificationResult, error) {
	respText, err := c.client.generateJSON(ctx, buildClassificationPrompt(text, fileName, expectedTaxYear))
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	var parsed struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
		TaxYear      *int    `json:"tax_year"`
		Issues       []issue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &parsed); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("parse classification json: %w", err)
	}
	if parsed.DocumentType == "" {
		return domain.ClassificationResult{}, fmt.Errorf("classification returned empty document type")
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	result := domain.ClassificationResult{
		DocumentType: parsed.DocumentType,
		Confidence:   parsed.Confidence,
		TaxYear:      parsed.TaxYear,
		Issues:       []string{},
	}
	for _, is := range parsed.Issues {
		result.Issues = append(result.Issues, domain.EncodeIssue(is.toDomain()))
	}

	// The model reports year mismatches inconsistently; enforce the check
	// here so the issue always carries the expected year.
	if expectedTaxYear > 0 && parsed.TaxYear != nil && *parsed.TaxYear != expectedTaxYear {
		result.Issues = append(result.Issues, domain.EncodeIssue(domain.Issue{
			Severity:    domain.SeverityError,
			Type:        "wrong_year",
			Expected:    strconv.Itoa(expectedTaxYear),
			Detected:    strconv.Itoa(*parsed.TaxYear),
			Description: fmt.Sprintf("document is for tax year %d, engagement expects %d", *parsed.TaxYear, expectedTaxYear),
		}))
	}
	if parsed.Confidence > 0 && parsed.Confidence < 0.6 {
		result.Issues = append(result.Issues, domain.EncodeIssue(domain.Issue{
			Severity:    domain.SeverityWarning,
			Type:        "low_confidence",
			Description: fmt.Sprintf("classification confidence %.2f is below review threshold", parsed.Confidence),
		}))
	}

	return result, nil
}

type issue struct {
	Severity    string `json:"severity"`
	Type        string `json:"type"`
	Expected    string `json:"expected"`
	Detected    string `json:"detected"`
	Description string `json:"description"`
}

func (i issue) toDomain() domain.Issue {
	severity := domain.IssueSeverity(i.Severity)
	if severity != domain.SeverityError && severity != domain.SeverityWarning {
		severity = domain.SeverityWarning
	}
	return domain.Issue{
		Severity:    severity,
		Type:        i.Type,
		Expected:    i.Expected,
		Detected:    i.Detected,
		Description: i.Description,
	}
}

func buildClassificationPrompt(text, fileName string, expectedTaxYear int) string {
	const maxSnippet = 4000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	prompt := `You are a tax document classifier.
Return a strict JSON object with keys:
document_type (string), confidence (number from 0 to 1), tax_year (integer or null),
issues (array of objects with keys severity, type, expected, detected, description).
severity is "error" or "warning". Use issue types wrong_year, wrong_type, incomplete,
illegible, low_confidence where they apply. No markdown, no extra keys.

Known document types: `
	for idx, dt := range knownDocumentTypes {
		if idx > 0 {
			prompt += ", "
		}
		prompt += dt
	}
	prompt += fmt.Sprintf("\n\nFile name: %s\n", fileName)
	if expectedTaxYear > 0 {
		prompt += fmt.Sprintf("Expected tax year: %d\n", expectedTaxYear)
	}
	prompt += "\nDocument text:\n" + snippet
	return prompt
}
