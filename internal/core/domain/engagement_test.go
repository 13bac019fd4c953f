package domain

import (
	"testing"
	"time"
)

func TestPriorityWeights(t *testing.T) {
	if PriorityHigh.Weight() != 0.5 {
		t.Fatalf("high weight = %v", PriorityHigh.Weight())
	}
	if PriorityMedium.Weight() != 0.35 {
		t.Fatalf("medium weight = %v", PriorityMedium.Weight())
	}
	if PriorityLow.Weight() != 0.15 {
		t.Fatalf("low weight = %v", PriorityLow.Weight())
	}
	if Priority("urgent").Weight() != 0.35 {
		t.Fatalf("unknown priority must weigh as medium, got %v", Priority("urgent").Weight())
	}
}

func TestAdvanceStatusIsForwardOnly(t *testing.T) {
	now := time.Now().UTC()
	e := Engagement{Status: EngagementCollecting}

	if e.AdvanceStatus(EngagementIntakeDone, now) {
		t.Fatal("backward move must be ignored")
	}
	if e.Status != EngagementCollecting {
		t.Fatalf("status = %s", e.Status)
	}

	if !e.AdvanceStatus(EngagementReady, now) {
		t.Fatal("forward move must apply")
	}
	if e.AdvanceStatus(EngagementCollecting, now) {
		t.Fatal("READY must not regress")
	}
	if e.Status != EngagementReady {
		t.Fatalf("status = %s", e.Status)
	}
}

func TestHasStorageItem(t *testing.T) {
	e := Engagement{Documents: []Document{{ID: "doc-1", StorageItemID: "item-1"}}}
	if !e.HasStorageItem("item-1") {
		t.Fatal("expected dedupe hit")
	}
	if e.HasStorageItem("item-2") {
		t.Fatal("unexpected dedupe hit")
	}
}

func TestRecordActivityRefreshesLastActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := Engagement{}
	e.RecordActivity("assessment", "document_uploaded", "assessed as W-2", now)

	if len(e.Activity) != 1 {
		t.Fatalf("activity length = %d", len(e.Activity))
	}
	if e.Activity[0].Agent != "assessment" || e.Activity[0].Trigger != "document_uploaded" {
		t.Fatalf("entry = %+v", e.Activity[0])
	}
	if !e.LastActivityAt.Equal(now) {
		t.Fatalf("last activity = %v", e.LastActivityAt)
	}
}

func TestApplyReconciliationRefreshesChecklistCaches(t *testing.T) {
	e := Engagement{
		Checklist: []ChecklistItem{
			{ID: "item-1", Status: ItemPending},
			{ID: "item-2", Status: ItemPending},
		},
	}
	pct := 59
	ranAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.ApplyReconciliation(Reconciliation{
		CompletionPercentage: &pct,
		ItemStatuses: []ItemReconciliation{
			{ItemID: "item-1", Status: ItemComplete, DocumentIDs: []string{"doc-1"}},
		},
		RanAt: ranAt,
	})

	if e.Reconciliation == nil || *e.Reconciliation.CompletionPercentage != 59 {
		t.Fatalf("reconciliation = %+v", e.Reconciliation)
	}
	if e.Checklist[0].Status != ItemComplete || len(e.Checklist[0].DocumentIDs) != 1 {
		t.Fatalf("item-1 cache = %+v", e.Checklist[0])
	}
	if e.Checklist[1].Status != ItemPending {
		t.Fatalf("item-2 must stay untouched, got %+v", e.Checklist[1])
	}
	if !e.UpdatedAt.Equal(ranAt) {
		t.Fatalf("updated at = %v", e.UpdatedAt)
	}
}
