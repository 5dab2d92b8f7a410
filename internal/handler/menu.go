package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/service"
)

// MenuHandler serves the dishes of the caller's active group plus the
// global tag and ingredient vocabularies.
type MenuHandler struct {
	menu   *service.MenuService
	logger *slog.Logger
}

// NewMenuHandler creates a MenuHandler.
func NewMenuHandler(menu *service.MenuService, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{menu: menu, logger: logger}
}

type rateRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// HandleList returns the caller's menu, newest first.
//
// HTTP: GET /api/menu/items?category=Dinner&search=curry&favorites=true
func (h *MenuHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := model.MenuFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if fav := q.Get("favorites"); fav != "" {
		filter.FavoritesOnly, err = strconv.ParseBool(fav)
		if err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("favorites", "favorites must be true or false"))
			return
		}
	}

	items, err := h.menu.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns one item with recipes, ingredients, tags and reviews.
//
// HTTP: GET /api/menu/items/{id}
func (h *MenuHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.menu.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleCreate adds a dish to the caller's active group.
//
// HTTP: POST /api/menu/items
func (h *MenuHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in model.MenuItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.menu.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleUpdate rewrites a dish. Omitting recipes, ingredients or tags keeps
// the stored ones.
//
// HTTP: PUT /api/menu/items/{id}
func (h *MenuHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in model.MenuItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.menu.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleDelete removes a dish together with its plans and share links.
//
// HTTP: DELETE /api/menu/items/{id}
func (h *MenuHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.menu.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Menu item deleted")
}

// HTTP: POST /api/menu/items/{id}/favorite
func (h *MenuHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.menu.ToggleFavorite(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleRate records the caller's rating, replacing an earlier one.
//
// HTTP: POST /api/menu/items/{id}/ratings
// REQUEST BODY: {"rating": 4, "review": "Great with rice"}
func (h *MenuHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.menu.Rate(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Review); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Rating saved")
}

// HTTP: GET /api/menu/tags
func (h *MenuHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.menu.ListTags(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HTTP: GET /api/menu/ingredients
func (h *MenuHandler) HandleListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.menu.ListIngredients(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}
