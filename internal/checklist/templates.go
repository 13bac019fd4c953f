// Package checklist provides the template-driven checklist generator used
// when the model-backed generator is unavailable, plus the per-filing-profile
// template library itself.
package checklist

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/clearledger/taxintake/internal/core/domain"
)

//go:embed templates.yaml
var defaultTemplates []byte

type templateItem struct {
	Title        string `yaml:"title"`
	Why          string `yaml:"why"`
	Priority     string `yaml:"priority"`
	DocumentType string `yaml:"document_type"`
}

type template struct {
	Profile string         `yaml:"profile"`
	Items   []templateItem `yaml:"items"`
}

// Library holds checklist templates keyed by filing profile.
type Library struct {
	byProfile map[string]template
}

func LoadLibrary(data []byte) (*Library, error) {
	var parsed struct {
		Templates []template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse checklist templates: %w", err)
	}
	if len(parsed.Templates) == 0 {
		return nil, fmt.Errorf("checklist template library is empty")
	}

	lib := &Library{byProfile: make(map[string]template, len(parsed.Templates))}
	for _, t := range parsed.Templates {
		if t.Profile == "" {
			return nil, fmt.Errorf("checklist template without profile")
		}
		if len(t.Items) == 0 {
			return nil, fmt.Errorf("checklist template %q has no items", t.Profile)
		}
		lib.byProfile[t.Profile] = t
	}
	if _, ok := lib.byProfile["standard"]; !ok {
		return nil, fmt.Errorf("checklist template library is missing the standard profile")
	}
	return lib, nil
}

// LoadLibraryFile reads templates from path, or the embedded defaults when
// path is empty.
func LoadLibraryFile(path string) (*Library, error) {
	if path == "" {
		return LoadLibrary(defaultTemplates)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist templates: %w", err)
	}
	return LoadLibrary(data)
}

// TemplateGenerator implements ports.ChecklistGenerator from the library.
type TemplateGenerator struct {
	library *Library
}

func NewTemplateGenerator(library *Library) *TemplateGenerator {
	return &TemplateGenerator{library: library}
}

func (g *TemplateGenerator) Generate(_ context.Context, e *domain.Engagement) ([]domain.ChecklistItem, error) {
	t, ok := g.library.byProfile[e.FilingProfile]
	if !ok {
		t = g.library.byProfile["standard"]
	}

	items := make([]domain.ChecklistItem, 0, len(t.Items))
	for _, ti := range t.Items {
		priority := domain.Priority(ti.Priority)
		switch priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			priority = domain.PriorityMedium
		}
		items = append(items, domain.ChecklistItem{
			ID:                   uuid.NewString(),
			Title:                ti.Title,
			Why:                  ti.Why,
			Priority:             priority,
			Status:               domain.ItemPending,
			DocumentIDs:          []string{},
			ExpectedDocumentType: ti.DocumentType,
		})
	}
	return items, nil
}
