package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"

	"qrfeedback-backend/internal/config"
	"qrfeedback-backend/internal/models"
)

// AuthHandler implements passwordless email login for business owners: a
// single-use magic link is mailed out, verifying it mints a dashboard JWT.
type AuthHandler struct {
	tokenStore    TokenStore
	businessStore BusinessStore
	cfg           config.Config
}

func NewAuthHandler(tokenStore TokenStore, businessStore BusinessStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		tokenStore:    tokenStore,
		businessStore: businessStore,
		cfg:           cfg,
	}
}

// --- Request / Response types ---

type RequestLoginRequest struct {
	Email string `json:"email"`
}

type VerifyResponse struct {
	Token    string           `json:"token"`
	Business *models.Business `json:"business"`
}

// --- POST /auth/request ---

func (h *AuthHandler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req RequestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	// Per-email rate limit on login requests
	count, err := h.tokenStore.CountRecentByEmail(r.Context(), req.Email, h.cfg.LoginRateWin)
	if err != nil {
		log.Error().Err(err).Msg("error checking login rate limit")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if count >= h.cfg.LoginRateMax {
		writeError(w, http.StatusTooManyRequests, "too many login requests, please try again later")
		return
	}

	tokenValue := uuid.New().String()
	authToken := &models.AuthToken{
		Email:     req.Email,
		Token:     tokenValue,
		ExpiresAt: time.Now().Add(h.cfg.LoginTokenTTL),
		IsUsed:    false,
	}
	if err := h.tokenStore.Create(r.Context(), authToken); err != nil {
		log.Error().Err(err).Msg("error creating auth token")
		writeError(w, http.StatusInternalServerError, "failed to create login token")
		return
	}

	// Link through our own HTTPS endpoint first: mail providers strip or
	// rewrite anything that isn't a plain https URL.
	baseURL := h.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	emailLink := fmt.Sprintf("%s/auth/redirect?token=%s", baseURL, tokenValue)

	if err := h.sendLoginEmail(req.Email, emailLink); err != nil {
		log.Error().Err(err).Msg("error sending login email")
		// Token is created; email delivery is best-effort.
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "login link generated (email delivery may be delayed)",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login link sent to your email",
	})
}

// --- GET /auth/verify ---

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	authToken, err := h.tokenStore.FindByToken(r.Context(), tokenValue)
	if err != nil {
		log.Error().Err(err).Msg("error finding auth token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if authToken == nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if authToken.IsExpired() {
		writeError(w, http.StatusUnauthorized, "token has expired")
		return
	}
	if authToken.IsUsed {
		writeError(w, http.StatusUnauthorized, "token has already been used")
		return
	}

	if err := h.tokenStore.MarkUsed(r.Context(), tokenValue); err != nil {
		log.Error().Err(err).Msg("error marking token as used")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// First login provisions the business with default branding and threshold.
	business, err := h.businessStore.FindOrCreate(r.Context(), authToken.Email)
	if err != nil {
		log.Error().Err(err).Msg("error finding/creating business")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"business_id": business.ID.Hex(),
		"email":       business.OwnerEmail,
		"exp":         time.Now().Add(h.cfg.JWTTTL).Unix(),
		"iat":         time.Now().Unix(),
	})
	tokenString, err := jwtToken.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		log.Error().Err(err).Msg("error signing JWT")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Token:    tokenString,
		Business: business,
	})
}

// --- GET /auth/redirect ---

// RedirectToDashboard is the link clicked from the email. It hands the
// magic-link token to the dashboard SPA, which then calls /auth/verify.
func (h *AuthHandler) RedirectToDashboard(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	target := fmt.Sprintf("%s/login?token=%s", h.cfg.DashboardURL, token)
	http.Redirect(w, r, target, http.StatusFound)
}

// --- Helpers ---

func (h *AuthHandler) sendLoginEmail(to, link string) error {
	if h.cfg.ResendAPIKey == "" {
		log.Warn().Msg("RESEND_API_KEY not set, skipping email send")
		log.Info().Str("email", to).Str("link", link).Msg("[dev mode] login link")
		return nil
	}

	client := resend.NewClient(h.cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    h.cfg.FromEmail,
		To:      []string{to},
		Subject: "Your dashboard login link",
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">Sign in to your dashboard</h2>
				<p>Click the button below to log in:</p>
				<a href="%s" style="display: inline-block; background: #2563eb; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600;">
					Open Dashboard
				</a>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					This link expires in %d minutes and can only be used once.
				</p>
				<p style="color: #aaa; font-size: 12px;">
					If you didn't request this, you can safely ignore this email.
				</p>
			</div>
		`, link, int(h.cfg.LoginTokenTTL.Minutes())),
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Info().Str("email_id", sent.Id).Msg("login email sent")
	return nil
}
