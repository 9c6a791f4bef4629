package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"offerdesk/internal/models"
	"offerdesk/internal/service"
	"offerdesk/internal/sheets"
	"offerdesk/internal/telegram"
	"offerdesk/internal/validation"
)

// APIHandler serves the dashboard JSON API
type APIHandler struct {
	offers    *service.OfferService
	content   *service.ContentService
	config    *service.ConfigService
	dashboard *service.DashboardService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(offers *service.OfferService, content *service.ContentService, config *service.ConfigService, dashboard *service.DashboardService) *APIHandler {
	return &APIHandler{
		offers:    offers,
		content:   content,
		config:    config,
		dashboard: dashboard,
	}
}

// Dashboard returns the summary counters
func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.serviceError(w, "Failed to load dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.List(r.Context())
	if err != nil {
		h.serviceError(w, "Failed to load offers", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(offers))
}

func (h *APIHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var offer models.LoanOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	created, err := h.offers.Create(r.Context(), offer)
	if err != nil {
		h.serviceError(w, "Failed to add offer", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.List(r.Context())
	if err != nil {
		h.serviceError(w, "Failed to load posts", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(posts))
}

func (h *APIHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var post models.ScheduledPost
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	created, err := h.content.Create(r.Context(), post)
	if err != nil {
		h.serviceError(w, "Failed to add post", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	index, ok := postIndex(w, r)
	if !ok {
		return
	}

	var post models.ScheduledPost
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	updated, err := h.content.Update(r.Context(), index, post)
	if err != nil {
		h.serviceError(w, "Failed to update post", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	index, ok := postIndex(w, r)
	if !ok {
		return
	}

	if err := h.content.Delete(r.Context(), index); err != nil {
		h.serviceError(w, "Failed to delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BroadcastPost sends a scheduled post now and marks it Done
func (h *APIHandler) BroadcastPost(w http.ResponseWriter, r *http.Request) {
	index, ok := postIndex(w, r)
	if !ok {
		return
	}

	post, err := h.content.Broadcast(r.Context(), index)
	if err != nil {
		h.serviceError(w, "Failed to broadcast post", err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// TestPost sends a scheduled post without changing its status
func (h *APIHandler) TestPost(w http.ResponseWriter, r *http.Request) {
	index, ok := postIndex(w, r)
	if !ok {
		return
	}

	if err := h.content.SendTestPost(r.Context(), index); err != nil {
		h.serviceError(w, "Failed to send test post", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// TestMessage sends an ad-hoc message from the editor
func (h *APIHandler) TestMessage(w http.ResponseWriter, r *http.Request) {
	var msg telegram.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := h.content.SendTest(r.Context(), msg); err != nil {
		h.serviceError(w, "Failed to send test message", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *APIHandler) ListConfig(w http.ResponseWriter, r *http.Request) {
	items, err := h.config.List(r.Context())
	if err != nil {
		h.serviceError(w, "Failed to load config", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(items))
}

func (h *APIHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var items []models.ConfigItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := h.config.Save(r.Context(), items); err != nil {
		h.serviceError(w, "Failed to save config", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(items))
}

// serviceError maps service and gateway errors to HTTP statuses
func (h *APIHandler) serviceError(w http.ResponseWriter, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Error(), "", nil)
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, sheets.ErrInvalidIndex):
		respondWithError(w, http.StatusNotFound, "Post not found", "", nil)
	case errors.Is(err, service.ErrSendFailed):
		respondWithError(w, http.StatusBadGateway, "Telegram did not accept the message", logMsg, err)
	case errors.Is(err, sheets.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Google session expired, please sign in again", logMsg, err)
	case errors.Is(err, sheets.ErrSheetNotFound):
		respondWithError(w, http.StatusBadGateway, "Sheet not found", logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func postIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		respondWithError(w, http.StatusBadRequest, ErrInvalidIndex, "", nil)
		return 0, false
	}
	return index, true
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
