package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
	"studio/internal/entitlement"
	"studio/internal/generation"
	"studio/internal/middleware"
	"studio/internal/providers/genai"
	"studio/internal/reference"
)

type generateRequest struct {
	Prompt         string            `json:"prompt" validate:"required"`
	RefinedPrompt  string            `json:"refinedPrompt"`
	NegativePrompt string            `json:"negativePrompt"`
	Mode           string            `json:"mode" validate:"omitempty,oneof=create remix camera crop prompt-adapt lighting pose upscale sketch external"`
	Camera         *domain.CameraRig `json:"camera"`
	References     *reference.Input  `json:"references"`
	Gallery        []reference.Input `json:"gallery"`
	Model          string            `json:"model"`
	AspectRatio    string            `json:"aspectRatio"`
	Options        map[string]any    `json:"options"`
}

type generateResponse struct {
	OK          bool   `json:"ok"`
	Base64Image string `json:"base64Image,omitempty"`
	Model       string `json:"model,omitempty"`
	ID          string `json:"id,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

const (
	reasonTimeout    = "timeout"
	reasonMissingKey = "missing_upstream_credential"
)

var userMessages = map[string]map[string]string{
	"en": {
		entitlement.ReasonQuotaExhausted: "Your image quota for this month is used up.",
		entitlement.ReasonPlanInactive:   "Your plan is not active yet.",
		entitlement.ReasonNoEntitlement:  "No subscription found for this account.",
		reasonTimeout:                    "The image model took too long to respond. Please try again.",
		reasonMissingKey:                 "Image generation is not configured yet. Please try again later.",
	},
	"id": {
		entitlement.ReasonQuotaExhausted: "Kuota gambar Anda bulan ini sudah habis.",
		entitlement.ReasonPlanInactive:   "Paket Anda belum aktif.",
		entitlement.ReasonNoEntitlement:  "Langganan tidak ditemukan untuk akun ini.",
		reasonTimeout:                    "Model gambar terlalu lama merespons. Silakan coba lagi.",
		reasonMissingKey:                 "Fitur pembuatan gambar belum dikonfigurasi. Silakan coba lagi nanti.",
	},
}

func localized(locale, key string) string {
	if msgs, ok := userMessages[locale]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := userMessages["en"][key]; ok {
		return msg
	}
	return key
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	locale := middleware.LocaleFromContext(r.Context())

	decision, err := a.Ledger.AuthorizeAndConsume(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("entitlement check failed")
		a.error(w, http.StatusInternalServerError, "internal", "entitlement check failed")
		return
	}
	if !decision.Allowed {
		a.json(w, http.StatusForbidden, generateResponse{
			OK:       false,
			Reason:   localized(locale, decision.Reason),
			ImageURL: a.Config.PlaceholderURL,
		})
		return
	}

	in := generation.Input{
		UserID:         userID,
		Prompt:         req.Prompt,
		RefinedPrompt:  req.RefinedPrompt,
		NegativePrompt: req.NegativePrompt,
		Mode:           domain.NormalizeMode(req.Mode),
		Model:          req.Model,
		AspectRatio:    req.AspectRatio,
		Reference:      req.References,
		Gallery:        req.Gallery,
		Options:        req.Options,
		Country:        middleware.CountryFromContext(r.Context()),
	}
	if req.Camera != nil {
		in.Camera = *req.Camera
	}

	outcome, err := a.Generator.Generate(r.Context(), in)
	if err != nil {
		a.json(w, http.StatusOK, generateResponse{
			OK:       false,
			Reason:   a.failureReason(locale, err),
			ImageURL: a.Config.PlaceholderURL,
		})
		return
	}

	a.json(w, http.StatusOK, generateResponse{
		OK:          true,
		Base64Image: outcome.Base64Image,
		Model:       outcome.Model,
		ID:          outcome.RecordID,
		Fallback:    outcome.Fallback,
	})
}

// failureReason maps pipeline errors onto user-readable reasons. Timeouts and
// a missing upstream key get localized messages; provider failures surface
// their own message, which already carries both reasons after a failed
// fallback attempt.
func (a *App) failureReason(locale string, err error) string {
	switch {
	case errors.Is(err, generation.ErrMissingCredential):
		return localized(locale, reasonMissingKey)
	case errors.Is(err, genai.ErrTimeout):
		return localized(locale, reasonTimeout)
	default:
		return err.Error()
	}
}
