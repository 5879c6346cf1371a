package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/middleware"
	"qrfeedback-backend/internal/models"
	"qrfeedback-backend/internal/triage"
)

// DashboardHandler exposes the triage engine to the service dashboard: the
// recomputed view, a live SSE stream of it, and the config mutations.
type DashboardHandler struct {
	feedbackStore FeedbackStore
	businessStore BusinessStore
}

func NewDashboardHandler(feedbackStore FeedbackStore, businessStore BusinessStore) *DashboardHandler {
	return &DashboardHandler{
		feedbackStore: feedbackStore,
		businessStore: businessStore,
	}
}

// loadConfig fetches the tenant and builds its triage config. A store error
// maps to an explicit unavailable state, never an empty view.
func (h *DashboardHandler) loadConfig(r *http.Request) (bson.ObjectID, triage.Config, error) {
	businessID := middleware.GetBusinessID(r.Context())
	oid, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		return bson.ObjectID{}, triage.Config{}, fmt.Errorf("invalid business id in token: %w", err)
	}
	business, err := h.businessStore.FindByID(r.Context(), oid)
	if err != nil {
		return bson.ObjectID{}, triage.Config{}, triage.ErrUnavailable
	}
	if business == nil {
		return bson.ObjectID{}, triage.Config{}, errors.New("business not found")
	}
	return oid, triage.NewConfig(business.FlaggingThreshold, business.ResolvedReviewIDs), nil
}

// --- GET /dashboard ---

func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := triage.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	oid, cfg, err := h.loadConfig(r)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	records, err := h.feedbackStore.FindByBusiness(r.Context(), oid)
	if err != nil {
		log.Error().Err(err).Msg("error loading feedback snapshot")
		writeError(w, http.StatusServiceUnavailable, triage.ErrUnavailable.Error())
		return
	}

	view := triage.BuildView(records, cfg, rng, time.Now().UTC())
	writeJSON(w, http.StatusOK, view)
}

// --- GET /dashboard/stream ---

// StreamDashboard pushes the recomputed view as server-sent events. One
// subscription per connected dashboard, scoped to the tenant; closing the
// request tears it down. Config changes made through the REST mutations are
// picked up on the next snapshot delivery.
func (h *DashboardHandler) StreamDashboard(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	rng, err := triage.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	oid, cfg, err := h.loadConfig(r)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	session := triage.NewSession(oid.Hex(), cfg, h.businessStore)
	session.SelectRange(rng)

	// Latest-wins buffer between the subscription callback and the writer
	// loop, so a slow client never blocks snapshot processing.
	views := make(chan triage.View, 1)
	push := func(v triage.View) {
		for {
			select {
			case views <- v:
				return
			default:
				select {
				case <-views:
				default:
				}
			}
		}
	}

	ctx := r.Context()
	stop, err := h.feedbackStore.Subscribe(ctx, oid.Hex(), func(records []models.Feedback) {
		// Pick up config changes made through the REST mutations since the
		// last delivery, then recompute the whole view from the snapshot.
		if business, err := h.businessStore.FindByID(ctx, oid); err == nil && business != nil {
			session.SetConfig(triage.NewConfig(business.FlaggingThreshold, business.ResolvedReviewIDs))
		}
		session.ApplySnapshot(records)
		push(session.View())
	})
	if err != nil {
		log.Error().Err(err).Str("business_id", oid.Hex()).Msg("error opening feedback subscription")
		writeError(w, http.StatusServiceUnavailable, triage.ErrUnavailable.Error())
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case view := <-views:
			payload, err := json.Marshal(view)
			if err != nil {
				log.Error().Err(err).Msg("error encoding dashboard view")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeConfigError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, triage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err.Error() == "business not found":
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}

// --- PUT /dashboard/threshold ---

type setThresholdRequest struct {
	Threshold int `json:"threshold"`
}

func (h *DashboardHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	var req setThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Threshold < triage.MinThreshold || req.Threshold > triage.MaxThreshold {
		writeError(w, http.StatusBadRequest, triage.ErrInvalidThreshold.Error())
		return
	}

	businessID := middleware.GetBusinessID(r.Context())
	if err := h.businessStore.SetThreshold(r.Context(), businessID, req.Threshold); err != nil {
		log.Error().Err(err).Str("business_id", businessID).Msg("error persisting threshold")
		writeError(w, http.StatusInternalServerError, "failed to update threshold")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "flagging threshold updated",
		"threshold": req.Threshold,
	})
}

// --- POST /dashboard/reviews/{id}/resolve ---

func (h *DashboardHandler) ResolveReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if reviewID == "" {
		writeError(w, http.StatusBadRequest, "review id is required")
		return
	}

	businessID := middleware.GetBusinessID(r.Context())
	if err := h.businessStore.AddResolvedReview(r.Context(), businessID, reviewID); err != nil {
		log.Error().Err(err).Str("business_id", businessID).Msg("error resolving review")
		writeError(w, http.StatusInternalServerError, "failed to resolve review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "review marked resolved",
		"review_id": reviewID,
	})
}

// --- DELETE /dashboard/reviews/{id}/resolve ---

func (h *DashboardHandler) UnresolveReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if reviewID == "" {
		writeError(w, http.StatusBadRequest, "review id is required")
		return
	}

	businessID := middleware.GetBusinessID(r.Context())
	if err := h.businessStore.RemoveResolvedReview(r.Context(), businessID, reviewID); err != nil {
		log.Error().Err(err).Str("business_id", businessID).Msg("error unresolving review")
		writeError(w, http.StatusInternalServerError, "failed to unresolve review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "review returned to flagged",
		"review_id": reviewID,
	})
}
