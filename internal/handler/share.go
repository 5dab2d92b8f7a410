package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/menu-planner/internal/service"
)

// ShareHandler issues and resolves public links to single dishes.
// Resolving a link is the only route in the API that needs no session.
type ShareHandler struct {
	shares *service.ShareService
	logger *slog.Logger
}

// NewShareHandler creates a ShareHandler.
func NewShareHandler(shares *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, logger: logger}
}

type createShareRequest struct {
	ExpiresInDays *int `json:"expiresInDays"`
}

// HandleCreate issues a link. Without expiresInDays the link never expires.
//
// HTTP: POST /api/share/{menuItemId}
// REQUEST BODY: {"expiresInDays": 7}   (optional)
func (h *ShareHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	link, err := h.shares.Create(r.Context(), userID, chi.URLParam(r, "menuItemId"), req.ExpiresInDays)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// HTTP: GET /api/share/{menuItemId}/links
func (h *ShareHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	links, err := h.shares.List(r.Context(), userID, chi.URLParam(r, "menuItemId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// HTTP: DELETE /api/share/links/{shareId}
func (h *ShareHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.shares.Delete(r.Context(), userID, chi.URLParam(r, "shareId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Share link deleted")
}

// HandleResolve returns the shared dish and counts the view.
//
// HTTP: GET /api/share/shared/{token}
func (h *ShareHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	item, err := h.shares.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
