package checklist

import (
	"context"
	"testing"

	"github.com/clearledger/taxintake/internal/core/domain"
)

func TestLoadLibraryEmbeddedDefaults(t *testing.T) {
	lib, err := LoadLibrary(defaultTemplates)
	if err != nil {
		t.Fatalf("LoadLibrary() error = %v", err)
	}
	for _, profile := range []string{"standard", "self_employed", "investor"} {
		if _, ok := lib.byProfile[profile]; !ok {
			t.Fatalf("missing profile %q", profile)
		}
	}
}

func TestTemplateGeneratorFallsBackToStandard(t *testing.T) {
	lib, err := LoadLibrary(defaultTemplates)
	if err != nil {
		t.Fatalf("LoadLibrary() error = %v", err)
	}
	gen := NewTemplateGenerator(lib)

	items, err := gen.Generate(context.Background(), &domain.Engagement{FilingProfile: "does_not_exist"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected standard profile items")
	}
	for _, item := range items {
		if item.ID == "" {
			t.Fatal("checklist item without id")
		}
		if item.Status != domain.ItemPending {
			t.Fatalf("new item status = %q, want pending", item.Status)
		}
	}
}

func TestLoadLibraryRejectsMissingStandard(t *testing.T) {
	data := []byte(`
templates:
  - profile: investor
    items:
      - title: t
        priority: high
        document_type: 1099-B
`)
	if _, err := LoadLibrary(data); err == nil {
		t.Fatal("expected error for library without standard profile")
	}
}
