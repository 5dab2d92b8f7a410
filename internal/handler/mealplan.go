package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/service"
)

// MealPlanHandler serves the caller's meal calendar and shopping lists.
type MealPlanHandler struct {
	plans  *service.MealPlanService
	logger *slog.Logger
}

// NewMealPlanHandler creates a MealPlanHandler.
func NewMealPlanHandler(plans *service.MealPlanService, logger *slog.Logger) *MealPlanHandler {
	return &MealPlanHandler{plans: plans, logger: logger}
}

type shoppingListRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Name      string `json:"name"`
}

// HandleList returns plans in an inclusive date range.
//
// HTTP: GET /api/plans?startDate=2024-03-04&endDate=2024-03-10
func (h *MealPlanHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	plans, err := h.plans.List(r.Context(), userID, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// HTTP: GET /api/plans/day/{date}
func (h *MealPlanHandler) HandleListDay(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	plans, err := h.plans.ListDay(r.Context(), userID, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// HandleCreate schedules a dish.
//
// HTTP: POST /api/plans
// REQUEST BODY: {"menu_item_id": "...", "planned_date": "2024-03-04", "meal_type": "dinner", "notes": ""}
func (h *MealPlanHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in model.MealPlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	plan, err := h.plans.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleUpdate changes the date, slot, notes or completion of a plan.
// Fields missing from the body are left as they are.
//
// HTTP: PUT /api/plans/{id}
func (h *MealPlanHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in model.MealPlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	plan, err := h.plans.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HTTP: DELETE /api/plans/{id}
func (h *MealPlanHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.plans.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Meal plan deleted")
}

// HandleGenerateShoppingList builds a list from the plans in a date range.
//
// HTTP: POST /api/plans/shopping-list
// REQUEST BODY: {"startDate": "2024-03-04", "endDate": "2024-03-10", "name": "Week 10"}
func (h *MealPlanHandler) HandleGenerateShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req shoppingListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.plans.GenerateShoppingList(r.Context(), userID, req.StartDate, req.EndDate, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HTTP: GET /api/plans/shopping-lists
func (h *MealPlanHandler) HandleListShoppingLists(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	lists, err := h.plans.ListShoppingLists(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HTTP: GET /api/plans/shopping-lists/{id}
func (h *MealPlanHandler) HandleGetShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.plans.GetShoppingList(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleToggleShoppingItem flips an item's checked flag.
//
// HTTP: PATCH /api/plans/shopping-lists/{id}/items/{itemId}
func (h *MealPlanHandler) HandleToggleShoppingItem(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.plans.ToggleShoppingItem(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HTTP: DELETE /api/plans/shopping-lists/{id}
func (h *MealPlanHandler) HandleDeleteShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.plans.DeleteShoppingList(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Shopping list deleted")
}
