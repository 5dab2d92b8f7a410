package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

// MealPlanService manages a user's calendar and the shopping lists built
// from it. Plans belong to the user, not to a group.
type MealPlanService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewMealPlanService creates a MealPlanService backed by store.
func NewMealPlanService(store repository.Store, logger *slog.Logger) *MealPlanService {
	return &MealPlanService{store: store, logger: logger}
}

// List returns the user's plans with start <= date <= end, by date and then
// breakfast, lunch, dinner, snack.
func (s *MealPlanService) List(ctx context.Context, userID, start, end string) ([]model.MealPlan, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	plans, err := s.store.ListMealPlans(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("service/mealplan: listing plans: %w", err)
	}
	return plans, nil
}

// ListDay returns the user's plans for a single date.
func (s *MealPlanService) ListDay(ctx context.Context, userID, date string) ([]model.MealPlan, error) {
	return s.List(ctx, userID, date, date)
}

// Create plans a visible menu item onto a date and meal. menu_item_id,
// planned_date and meal_type are required.
func (s *MealPlanService) Create(ctx context.Context, userID string, in model.MealPlanInput) (*model.MealPlan, error) {
	if strings.TrimSpace(in.MenuItemID) == "" {
		return nil, apperror.ValidationFailed("menu_item_id", "menu_item_id is required")
	}
	if in.PlannedDate == nil {
		return nil, apperror.ValidationFailed("planned_date", "planned_date is required")
	}
	if in.MealType == nil {
		return nil, apperror.ValidationFailed("meal_type", "meal_type is required")
	}

	plan := &model.MealPlan{UserID: userID, MenuItemID: in.MenuItemID}
	if err := applyMealPlanInput(plan, in); err != nil {
		return nil, err
	}
	if _, err := visibleMenuItem(ctx, s.store, userID, in.MenuItemID); err != nil {
		return nil, err
	}

	if err := s.store.CreateMealPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("service/mealplan: creating plan: %w", err)
	}
	return s.get(ctx, userID, plan.ID)
}

// Update applies the non-nil fields of in. The menu item of a plan cannot
// be changed.
func (s *MealPlanService) Update(ctx context.Context, userID, planID string, in model.MealPlanInput) (*model.MealPlan, error) {
	plan, err := s.get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if err := applyMealPlanInput(plan, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMealPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("service/mealplan: updating plan: %w", err)
	}
	return s.get(ctx, userID, planID)
}

// Delete removes one of the user's plans.
func (s *MealPlanService) Delete(ctx context.Context, userID, planID string) error {
	if _, err := s.get(ctx, userID, planID); err != nil {
		return err
	}
	if err := s.store.DeleteMealPlan(ctx, planID); err != nil {
		return fmt.Errorf("service/mealplan: deleting plan: %w", err)
	}
	return nil
}

// get loads a plan owned by userID; other users' plans are NotFound.
func (s *MealPlanService) get(ctx context.Context, userID, planID string) (*model.MealPlan, error) {
	plan, err := s.store.GetMealPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("meal plan", planID)
		}
		return nil, fmt.Errorf("service/mealplan: loading plan: %w", err)
	}
	if plan.UserID != userID {
		return nil, apperror.NotFound("meal plan", planID)
	}
	return plan, nil
}

func applyMealPlanInput(plan *model.MealPlan, in model.MealPlanInput) error {
	if in.PlannedDate != nil {
		if err := validateDate("planned_date", *in.PlannedDate); err != nil {
			return err
		}
		plan.PlannedDate = *in.PlannedDate
	}
	if in.MealType != nil {
		if !model.ValidMealType(*in.MealType) {
			return apperror.ValidationFailed("meal_type", "meal_type must be breakfast, lunch, dinner or snack")
		}
		plan.MealType = *in.MealType
	}
	if in.Notes != nil {
		plan.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Completed != nil {
		plan.Completed = *in.Completed
	}
	return nil
}

// =========================================================================
// SHOPPING LISTS
// =========================================================================

// GenerateShoppingList sums the ingredients of every meal the user planned
// in [start, end], per ingredient and unit, into a new list. A range with no
// ingredients still produces an empty list.
func (s *MealPlanService) GenerateShoppingList(ctx context.Context, userID, start, end, name string) (*model.ShoppingList, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Shopping List " + start
	}

	list := &model.ShoppingList{UserID: userID, Name: name}
	err := runTx(ctx, s.store, s.logger, "generate shopping list", func(tx repository.Store) error {
		items, err := tx.AggregateShoppingItems(ctx, userID, start, end)
		if err != nil {
			return err
		}
		if err := tx.CreateShoppingList(ctx, list); err != nil {
			return err
		}
		for i := range items {
			items[i].ShoppingListID = list.ID
			if err := tx.AddShoppingListItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shopping list generated",
		slog.String("listID", list.ID),
		slog.String("userID", userID),
		slog.String("start", start),
		slog.String("end", end),
	)
	return s.GetShoppingList(ctx, userID, list.ID)
}

// ListShoppingLists returns the user's lists, newest first, with item and
// checked counts.
func (s *MealPlanService) ListShoppingLists(ctx context.Context, userID string) ([]model.ShoppingList, error) {
	lists, err := s.store.ListShoppingLists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/mealplan: listing shopping lists: %w", err)
	}
	return lists, nil
}

// GetShoppingList returns the list with its items, grouped by category.
func (s *MealPlanService) GetShoppingList(ctx context.Context, userID, listID string) (*model.ShoppingList, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	if list.Items, err = s.store.ListShoppingListItems(ctx, listID); err != nil {
		return nil, fmt.Errorf("service/mealplan: loading shopping list items: %w", err)
	}
	return list, nil
}

// ToggleShoppingItem flips the checked flag of one item on the user's list.
func (s *MealPlanService) ToggleShoppingItem(ctx context.Context, userID, listID, itemID string) (*model.ShoppingListItem, error) {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}
	item, err := s.store.ToggleShoppingListItem(ctx, listID, itemID)
	if err != nil {
		if apperror.Is(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/mealplan: toggling item: %w", err)
	}
	return item, nil
}

// DeleteShoppingList removes the list and its items.
func (s *MealPlanService) DeleteShoppingList(ctx context.Context, userID, listID string) error {
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return err
	}
	if err := s.store.DeleteShoppingList(ctx, listID); err != nil {
		return fmt.Errorf("service/mealplan: deleting shopping list: %w", err)
	}
	return nil
}

func (s *MealPlanService) ownedList(ctx context.Context, userID, listID string) (*model.ShoppingList, error) {
	list, err := s.store.GetShoppingList(ctx, listID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("shopping list", listID)
		}
		return nil, fmt.Errorf("service/mealplan: loading shopping list: %w", err)
	}
	if list.UserID != userID {
		return nil, apperror.NotFound("shopping list", listID)
	}
	return list, nil
}

// =========================================================================
// DATES
// =========================================================================

func validateDate(field, value string) error {
	if _, err := time.Parse(model.DateLayout, value); err != nil {
		return apperror.ValidationFailed(field, field+" must be a date in YYYY-MM-DD format")
	}
	return nil
}

func validateRange(start, end string) error {
	if err := validateDate("startDate", start); err != nil {
		return err
	}
	if err := validateDate("endDate", end); err != nil {
		return err
	}
	if end < start {
		return apperror.ValidationFailed("endDate", "endDate must not be before startDate")
	}
	return nil
}
