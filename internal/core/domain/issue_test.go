package domain

import (
	"strings"
	"testing"
)

func TestEncodeIssueCanonicalForm(t *testing.T) {
	encoded := EncodeIssue(Issue{
		Severity:    SeverityError,
		Type:        "wrong_year",
		Expected:    "2025",
		Detected:    "2024",
		Description: "W-2 is for tax year 2024, engagement expects 2025",
	})
	want := "[ERROR:wrong_year:2025:2024] W-2 is for tax year 2024, engagement expects 2025"
	if encoded != want {
		t.Fatalf("encoded = %q, want %q", encoded, want)
	}
}

func TestEncodeIssueKeepsEmptySegments(t *testing.T) {
	encoded := EncodeIssue(Issue{
		Severity:    SeverityWarning,
		Type:        "low_confidence",
		Description: "classification confidence 0.42",
	})
	if encoded != "[WARNING:low_confidence::] classification confidence 0.42" {
		t.Fatalf("encoded = %q", encoded)
	}
}

func TestDecodeIssueRoundTrip(t *testing.T) {
	original := Issue{
		Severity:    SeverityError,
		Type:        "wrong_type",
		Expected:    "W-2",
		Detected:    "1099-NEC",
		Description: "expected a W-2",
	}
	decoded := DecodeIssue(EncodeIssue(original))
	if decoded != original {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestDecodeIssueLegacyErrorType(t *testing.T) {
	decoded := DecodeIssue("[wrong_year] document is for the wrong year")
	if decoded.Severity != SeverityError {
		t.Fatalf("expected inferred error severity, got %s", decoded.Severity)
	}
	if decoded.Type != "wrong_year" {
		t.Fatalf("expected type wrong_year, got %q", decoded.Type)
	}
	if decoded.Expected != "" || decoded.Detected != "" {
		t.Fatalf("legacy form must not carry expected/detected, got %+v", decoded)
	}
	if decoded.Description != "document is for the wrong year" {
		t.Fatalf("description = %q", decoded.Description)
	}
}

func TestDecodeIssueLegacyWarningType(t *testing.T) {
	decoded := DecodeIssue("[low_confidence] confidence below threshold")
	if decoded.Severity != SeverityWarning {
		t.Fatalf("expected inferred warning severity, got %s", decoded.Severity)
	}
	if decoded.Type != "low_confidence" {
		t.Fatalf("type = %q", decoded.Type)
	}
}

func TestDecodeIssuePlainTextFallback(t *testing.T) {
	decoded := DecodeIssue("  something looked off  ")
	if decoded.Severity != SeverityWarning || decoded.Type != "other" {
		t.Fatalf("expected warning/other fallback, got %+v", decoded)
	}
	if decoded.Description != "something looked off" {
		t.Fatalf("description = %q", decoded.Description)
	}
}

func TestDecodeIssueRejectsUnknownSeverityHead(t *testing.T) {
	// A four-field head with a bogus severity is not canonical and has a
	// colon, so it cannot be legacy either; it falls through to plain text.
	decoded := DecodeIssue("[FATAL:wrong_year:2025:2024] bad severity")
	if decoded.Type != "other" || decoded.Severity != SeverityWarning {
		t.Fatalf("expected plain-text fallback, got %+v", decoded)
	}
}

func TestHasErrorsAndWarnings(t *testing.T) {
	issues := []string{
		"[ERROR:wrong_year:2025:2024] wrong year",
		"[WARNING:low_confidence::] shaky",
	}
	if !HasErrors(issues) {
		t.Fatal("expected HasErrors")
	}
	if !HasWarnings(issues) {
		t.Fatal("expected HasWarnings")
	}
	if HasErrors([]string{"[WARNING:low_confidence::] shaky"}) {
		t.Fatal("warnings alone must not count as errors")
	}
}

func TestSuggestedActionWrongYearUsesExpected(t *testing.T) {
	action := SuggestedAction(Issue{Type: "wrong_year", Expected: "2025"})
	if action != "Request document for tax year 2025" {
		t.Fatalf("action = %q", action)
	}
}

func TestSuggestedActionIsTotal(t *testing.T) {
	action := SuggestedAction(Issue{Type: "never_seen_before"})
	if action != "Review and take appropriate action" {
		t.Fatalf("action = %q", action)
	}
}

func TestRenderIssueDetails(t *testing.T) {
	details := RenderIssueDetails([]string{
		"[ERROR:wrong_year:2025:2024] W-2 is for 2024",
		"[WARNING:low_confidence::] confidence 0.5",
	})
	lines := strings.Split(details, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), details)
	}
	if !strings.HasPrefix(lines[0], "ERROR (wrong_year): W-2 is for 2024. Suggested: Request document for tax year 2025") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "WARNING (low_confidence)") {
		t.Fatalf("line 1 = %q", lines[1])
	}

	if RenderIssueDetails(nil) != "" {
		t.Fatal("empty issue list must render empty details")
	}
}
