package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearledger/taxintake/internal/core/domain"
)

type fakeIntake struct {
	created *domain.Engagement
	err     error
}

func (f *fakeIntake) Create(_ context.Context, params domain.IntakeParams) (*domain.Engagement, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &domain.Engagement{ID: "eng-1", ClientName: params.ClientName, TaxYear: params.TaxYear}
	return f.created, nil
}

type fakeReader struct {
	engagement *domain.Engagement
}

func (f *fakeReader) GetByID(_ context.Context, id string) (*domain.Engagement, error) {
	if f.engagement == nil || f.engagement.ID != id {
		return nil, domain.WrapError(domain.ErrEngagementNotFound, "reader.get", nil)
	}
	return f.engagement, nil
}

type fakeReviewer struct {
	approvedDoc  string
	approvedWith bool
	reclassified string
	newType      string
}

func (f *fakeReviewer) Approve(_ context.Context, _, documentID string, approved bool) (*domain.Engagement, error) {
	f.approvedDoc = documentID
	f.approvedWith = approved
	return &domain.Engagement{ID: "eng-1"}, nil
}

func (f *fakeReviewer) Reclassify(_ context.Context, _, documentID, newType, _ string) (*domain.Engagement, error) {
	f.reclassified = documentID
	f.newType = newType
	return &domain.Engagement{ID: "eng-1"}, nil
}

type fakePoller struct {
	polled []string
}

func (f *fakePoller) PollAll(context.Context) error   { return nil }
func (f *fakePoller) SweepAll(context.Context) error  { return nil }
func (f *fakePoller) ScanStale(context.Context) error { return nil }
func (f *fakePoller) PollEngagement(_ context.Context, engagementID string) error {
	f.polled = append(f.polled, engagementID)
	return nil
}

type fakeBus struct {
	published []domain.Event
}

func (f *fakeBus) Publish(_ context.Context, ev domain.Event) error {
	f.published = append(f.published, ev)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, func(context.Context, domain.Event) error) error {
	return nil
}

func newTestRouter() (*Router, *fakeIntake, *fakeReader, *fakeReviewer, *fakePoller, *fakeBus) {
	intake := &fakeIntake{}
	reader := &fakeReader{engagement: &domain.Engagement{ID: "eng-1", ClientName: "Dana Wu"}}
	reviewer := &fakeReviewer{}
	poller := &fakePoller{}
	bus := &fakeBus{}
	return NewRouter(intake, reader, reviewer, poller, bus), intake, reader, reviewer, poller, bus
}

func TestCreateEngagementReturnsCreated(t *testing.T) {
	rt, intake, _, _, _, _ := newTestRouter()
	body := `{"client_name":"Dana Wu","tax_year":2025,"storage_folder_ref":"clients/dana"}`

	req := httptest.NewRequest(http.MethodPost, "/v1/engagements", strings.NewReader(body))
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if intake.created == nil || intake.created.ClientName != "Dana Wu" {
		t.Fatalf("expected intake to receive client name, got %+v", intake.created)
	}
}

func TestGetEngagementMapsNotFound(t *testing.T) {
	rt, _, _, _, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/engagements/missing", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestApproveDocumentRequiresApprovedField(t *testing.T) {
	rt, _, _, reviewer, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/engagements/eng-1/documents/doc-1/approve", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if reviewer.approvedDoc != "" {
		t.Fatalf("reviewer should not have been called")
	}
}

func TestApproveDocumentForwardsDecision(t *testing.T) {
	rt, _, _, reviewer, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/engagements/eng-1/documents/doc-1/approve", strings.NewReader(`{"approved":true}`))
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if reviewer.approvedDoc != "doc-1" || !reviewer.approvedWith {
		t.Fatalf("expected approve(doc-1, true), got (%q, %v)", reviewer.approvedDoc, reviewer.approvedWith)
	}
}

func TestReclassifyDocumentRequiresType(t *testing.T) {
	rt, _, _, reviewer, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/engagements/eng-1/documents/doc-1/reclassify", strings.NewReader(`{"reason":"client confirmed"}`))
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if reviewer.reclassified != "" {
		t.Fatalf("reviewer should not have been called")
	}
}

func TestTriggerCheckPublishesEvent(t *testing.T) {
	rt, _, _, _, _, bus := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/engagements/eng-1/check", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(bus.published) != 1 || bus.published[0].Type != domain.EventCheckCompletion {
		t.Fatalf("expected one check_completion event, got %+v", bus.published)
	}
	if bus.published[0].EngagementID != "eng-1" {
		t.Fatalf("expected engagement id on event, got %q", bus.published[0].EngagementID)
	}
}

func TestStorageWebhookTriggersPoll(t *testing.T) {
	rt, _, _, _, poller, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/storage/webhook", strings.NewReader(`{"engagement_id":"eng-1"}`))
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(poller.polled) != 1 || poller.polled[0] != "eng-1" {
		t.Fatalf("expected one poll for eng-1, got %v", poller.polled)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	rt, _, _, _, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected healthz ok, got %v", body)
	}
}
