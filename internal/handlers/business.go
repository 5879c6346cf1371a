package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/middleware"
	"qrfeedback-backend/internal/models"
)

// BusinessHandler covers the tenant's self-service surface: profile, form
// customization and reward management, plus the public form lookup the guest
// page uses.
type BusinessHandler struct {
	businessStore BusinessStore
}

func NewBusinessHandler(businessStore BusinessStore) *BusinessHandler {
	return &BusinessHandler{
		businessStore: businessStore,
	}
}

func (h *BusinessHandler) currentBusiness(w http.ResponseWriter, r *http.Request) (*models.Business, bool) {
	businessID := middleware.GetBusinessID(r.Context())
	oid, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	business, err := h.businessStore.FindByID(r.Context(), oid)
	if err != nil {
		log.Error().Err(err).Msg("error loading business")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return nil, false
	}
	if business == nil {
		writeError(w, http.StatusNotFound, "business not found")
		return nil, false
	}
	return business, true
}

// --- GET /business ---

func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	business, ok := h.currentBusiness(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, business)
}

// --- PUT /business ---

func (h *BusinessHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	business, ok := h.currentBusiness(w, r)
	if !ok {
		return
	}

	var profile models.BusinessProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if profile.Name == "" {
		writeError(w, http.StatusBadRequest, "business name is required")
		return
	}

	if err := h.businessStore.UpdateProfile(r.Context(), business.ID, profile); err != nil {
		log.Error().Err(err).Msg("error updating business profile")
		writeError(w, http.StatusInternalServerError, "failed to update business")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "business updated"})
}

// --- PUT /business/customization ---

func (h *BusinessHandler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	business, ok := h.currentBusiness(w, r)
	if !ok {
		return
	}

	var c models.FormCustomization
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.businessStore.UpdateCustomization(r.Context(), business.ID, c); err != nil {
		log.Error().Err(err).Msg("error updating form customization")
		writeError(w, http.StatusInternalServerError, "failed to update customization")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "form customization updated"})
}

// --- GET /business/rewards ---

func (h *BusinessHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	business, ok := h.currentBusiness(w, r)
	if !ok {
		return
	}
	rewards := business.Rewards
	if rewards == nil {
		rewards = []models.Reward{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": rewards})
}

// --- PUT /business/rewards ---

type saveRewardsRequest struct {
	Rewards []models.Reward `json:"rewards"`
}

// SaveRewards replaces the complete reward list. Rewards get an id and, when
// active, a promo code assigned server-side if the portal did not set one.
func (h *BusinessHandler) SaveRewards(w http.ResponseWriter, r *http.Request) {
	business, ok := h.currentBusiness(w, r)
	if !ok {
		return
	}

	var req saveRewardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rewards := req.Rewards
	if rewards == nil {
		rewards = []models.Reward{}
	}
	for i := range rewards {
		switch rewards[i].Type {
		case models.RewardTypePercentageDiscount, models.RewardTypeFreeItem:
		default:
			writeError(w, http.StatusBadRequest, "invalid reward type")
			return
		}
		if rewards[i].ID == "" {
			rewards[i].ID = uuid.NewString()
		}
		if rewards[i].Active && rewards[i].PromoCode == "" {
			rewards[i].PromoCode = newPromoCode()
		}
	}

	if err := h.businessStore.SaveRewards(r.Context(), business.ID, rewards); err != nil {
		log.Error().Err(err).Msg("error saving rewards")
		writeError(w, http.StatusInternalServerError, "failed to save rewards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rewards saved",
		"rewards": rewards,
	})
}

func newPromoCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// --- GET /form/{businessID} ---

// GetForm is public: the guest feedback page loads the business's branding
// before rendering.
func (h *BusinessHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	oid, err := bson.ObjectIDFromHex(chi.URLParam(r, "businessID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	business, err := h.businessStore.FindByID(r.Context(), oid)
	if err != nil {
		log.Error().Err(err).Msg("error loading business for form")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	if business == nil {
		writeError(w, http.StatusNotFound, "unknown business")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"business_id":   business.ID.Hex(),
		"customization": business.Customization,
	})
}
