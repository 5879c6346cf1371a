package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/models"
	"qrfeedback-backend/internal/notify"
	"qrfeedback-backend/internal/triage"
)

// FeedbackHandler serves the public guest submission flow. No auth: guests
// reach it from the QR code on the table.
type FeedbackHandler struct {
	feedbackStore FeedbackStore
	businessStore BusinessStore
	notifier      notify.Notifier
}

func NewFeedbackHandler(feedbackStore FeedbackStore, businessStore BusinessStore, notifier notify.Notifier) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackStore: feedbackStore,
		businessStore: businessStore,
		notifier:      notifier,
	}
}

type SubmitFeedbackRequest struct {
	BusinessID     string `json:"business_id"`
	Rating         int    `json:"rating"`
	Comments       string `json:"comments"`
	IdempotencyKey string `json:"idempotency_key"`
}

// --- POST /feedback ---

// SubmitFeedback records a guest review. Malformed input gets defaults
// (missing rating stays 0, empty comment is allowed) rather than a
// rejection; only an unknown business is refused. High ratings earn the
// business's active reward in the response; low ratings fire an alert to the
// operator in the background.
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.BusinessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	businessID, err := bson.ObjectIDFromHex(req.BusinessID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid business_id")
		return
	}

	business, err := h.businessStore.FindByID(r.Context(), businessID)
	if err != nil {
		log.Error().Err(err).Msg("error loading business for submission")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	if business == nil {
		writeError(w, http.StatusNotFound, "unknown business")
		return
	}

	// Idempotency check — prevent duplicate submissions on retry
	if req.IdempotencyKey != "" {
		existing, err := h.feedbackStore.FindByIdempotencyKey(r.Context(), req.IdempotencyKey)
		if err != nil {
			log.Error().Err(err).Msg("error checking idempotency")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"message":  "feedback already submitted",
				"feedback": existing,
			})
			return
		}
	}

	feedback := &models.Feedback{
		BusinessID:     businessID,
		Rating:         req.Rating,
		Comments:       req.Comments,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := h.feedbackStore.Create(r.Context(), feedback); err != nil {
		log.Error().Err(err).Msg("error creating feedback")
		writeError(w, http.StatusInternalServerError, "failed to submit feedback")
		return
	}

	// Low ratings alert the operator in a background goroutine (non-blocking).
	threshold := triage.NewConfig(business.FlaggingThreshold, nil).Threshold
	if req.Rating <= threshold {
		alert := notify.Alert{
			BusinessName: business.Name,
			Email:        business.Email,
			Rating:       req.Rating,
			Comment:      req.Comments,
		}
		go func() {
			if err := h.notifier.Publish(context.Background(), alert); err != nil {
				log.Error().Err(err).Msg("error publishing low rating alert")
			}
		}()
	}

	response := map[string]interface{}{
		"message":  "feedback submitted successfully",
		"feedback": feedback,
	}
	if triage.RewardEligible(req.Rating) {
		if reward := business.ActiveReward(); reward != nil {
			response["reward"] = reward
		}
	}

	writeJSON(w, http.StatusCreated, response)
}
