package domain

import (
	"fmt"
	"strings"
)

type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is the decoded form of one document defect. Expected and Detected
// are empty when the issue carries no concrete values for them.
type Issue struct {
	Severity    IssueSeverity `json:"severity"`
	Type        string        `json:"type"`
	Expected    string        `json:"expected,omitempty"`
	Detected    string        `json:"detected,omitempty"`
	Description string        `json:"description"`
}

// errorTypes is the closed set of legacy issue types that imply error severity.
var errorTypes = map[string]bool{
	"wrong_year": true,
	"wrong_type": true,
	"incomplete": true,
	"illegible":  true,
}

func IsErrorType(issueType string) bool {
	return errorTypes[issueType]
}

// EncodeIssue renders the canonical compact form:
// [SEVERITY:type:expected:detected] description
// Absent expected/detected values stay as empty segments.
func EncodeIssue(i Issue) string {
	severity := strings.ToUpper(string(i.Severity))
	return fmt.Sprintf("[%s:%s:%s:%s] %s", severity, i.Type, i.Expected, i.Detected, i.Description)
}

// DecodeIssue parses an encoded issue string. Three forms are accepted, in
// priority order: the canonical four-field bracketed form, the legacy
// single-field bracketed form with inferred severity, and plain text.
func DecodeIssue(raw string) Issue {
	if issue, ok := decodeCanonical(raw); ok {
		return issue
	}
	if issue, ok := decodeLegacy(raw); ok {
		return issue
	}
	return Issue{
		Severity:    SeverityWarning,
		Type:        "other",
		Description: strings.TrimSpace(raw),
	}
}

func decodeCanonical(raw string) (Issue, bool) {
	head, description, ok := splitBracketHead(raw)
	if !ok {
		return Issue{}, false
	}
	fields := strings.Split(head, ":")
	if len(fields) != 4 {
		return Issue{}, false
	}
	severity := IssueSeverity(strings.ToLower(strings.TrimSpace(fields[0])))
	if severity != SeverityError && severity != SeverityWarning {
		return Issue{}, false
	}
	return Issue{
		Severity:    severity,
		Type:        fields[1],
		Expected:    fields[2],
		Detected:    fields[3],
		Description: description,
	}, true
}

func decodeLegacy(raw string) (Issue, bool) {
	head, description, ok := splitBracketHead(raw)
	if !ok || head == "" || strings.Contains(head, ":") {
		return Issue{}, false
	}
	severity := SeverityWarning
	if IsErrorType(head) {
		severity = SeverityError
	}
	return Issue{
		Severity:    severity,
		Type:        head,
		Description: description,
	}, true
}

func splitBracketHead(raw string) (head, rest string, ok bool) {
	if !strings.HasPrefix(raw, "[") {
		return "", "", false
	}
	end := strings.Index(raw, "]")
	if end < 0 {
		return "", "", false
	}
	return raw[1:end], strings.TrimSpace(raw[end+1:]), true
}

// HasErrors reports whether at least one encoded issue decodes to error severity.
func HasErrors(issues []string) bool {
	for _, raw := range issues {
		if DecodeIssue(raw).Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether at least one encoded issue decodes to warning severity.
func HasWarnings(issues []string) bool {
	for _, raw := range issues {
		if DecodeIssue(raw).Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// SuggestedAction maps an issue to the next human action. Total: every issue
// gets an answer.
func SuggestedAction(i Issue) string {
	switch i.Type {
	case "wrong_year":
		if i.Expected != "" {
			return fmt.Sprintf("Request document for tax year %s", i.Expected)
		}
		return "Request document for the correct tax year"
	case "wrong_type":
		if i.Expected != "" {
			return fmt.Sprintf("Request %s from the client", i.Expected)
		}
		return "Request the correct document type"
	case "incomplete":
		return "Request the complete version of the document"
	case "illegible":
		return "Request a clearer copy or the original document"
	case "low_confidence":
		return "Manually verify the document classification"
	case "duplicate":
		return "Confirm whether this replaces the earlier upload"
	default:
		return "Review and take appropriate action"
	}
}

// RenderIssueDetails builds the human-friendly cache stored in
// Document.IssueDetails. Returns "" for an empty issue list.
func RenderIssueDetails(issues []string) string {
	if len(issues) == 0 {
		return ""
	}
	var b strings.Builder
	for idx, raw := range issues {
		issue := DecodeIssue(raw)
		if idx > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s): %s. Suggested: %s",
			strings.ToUpper(string(issue.Severity)), issue.Type, issue.Description, SuggestedAction(issue))
	}
	return b.String()
}
