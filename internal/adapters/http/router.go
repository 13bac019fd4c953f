package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

type Router struct {
	intake   ports.EngagementIntake
	reader   ports.EngagementReader
	reviewer ports.DocumentReviewer
	poller   ports.PollCoordinator
	bus      ports.EventBus
}

func NewRouter(
	intake ports.EngagementIntake,
	reader ports.EngagementReader,
	reviewer ports.DocumentReviewer,
	poller ports.PollCoordinator,
	bus ports.EventBus,
) *Router {
	return &Router{
		intake:   intake,
		reader:   reader,
		reviewer: reviewer,
		poller:   poller,
		bus:      bus,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/engagements", rt.createEngagement)
	mux.HandleFunc("GET /v1/engagements/{id}", rt.getEngagement)
	mux.HandleFunc("POST /v1/engagements/{id}/check", rt.triggerCheck)
	mux.HandleFunc("POST /v1/engagements/{id}/documents/{docID}/approve", rt.approveDocument)
	mux.HandleFunc("POST /v1/engagements/{id}/documents/{docID}/reclassify", rt.reclassifyDocument)
	mux.HandleFunc("POST /v1/storage/webhook", rt.storageWebhook)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createEngagement(w http.ResponseWriter, r *http.Request) {
	var params domain.IntakeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	e, err := rt.intake.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (rt *Router) getEngagement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// triggerCheck asks the dispatcher to re-run reconciliation for one
// engagement, via the same event the review flow publishes.
func (rt *Router) triggerCheck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := rt.reader.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	ev := domain.Event{Type: domain.EventCheckCompletion, EngagementID: id}
	if err := rt.bus.Publish(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) approveDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Approved == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'approved' is required"})
		return
	}

	e, err := rt.reviewer.Approve(r.Context(), r.PathValue("id"), r.PathValue("docID"), *req.Approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (rt *Router) reclassifyDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentType string `json:"document_type"`
		Reason       string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.DocumentType) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'document_type' is required"})
		return
	}

	e, err := rt.reviewer.Reclassify(r.Context(), r.PathValue("id"), r.PathValue("docID"), req.DocumentType, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// storageWebhook lets a storage provider push a change notice instead of
// waiting for the next scheduled poll.
func (rt *Router) storageWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EngagementID string `json:"engagement_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.EngagementID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'engagement_id' is required"})
		return
	}

	if err := rt.poller.PollEngagement(r.Context(), req.EngagementID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "synced"})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
