package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

const maxMenuItemNameLength = 200

// MenuService manages the dishes of the caller's active group.
//
// Users without an active group work on a private menu: the items they
// created with no group. Items outside the caller's reach are reported as
// NotFound, never Forbidden, so ids of other groups' dishes do not leak.
type MenuService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewMenuService creates a MenuService backed by store.
func NewMenuService(store repository.Store, logger *slog.Logger) *MenuService {
	return &MenuService{store: store, logger: logger}
}

// List returns the caller's menu, newest first. GroupID and OwnerID in
// filter are overwritten from the caller's active group.
func (s *MenuService) List(ctx context.Context, userID string, filter model.MenuFilter) ([]model.MenuItem, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/menu: loading user: %w", err)
	}

	filter.GroupID, filter.OwnerID = "", ""
	if user.HasActiveGroup() {
		filter.GroupID = *user.ActiveGroupID
	} else {
		filter.OwnerID = userID
	}

	items, err := s.store.ListMenuItems(ctx, filter, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/menu: listing items: %w", err)
	}
	return items, nil
}

// Get returns the item with recipes, ingredients, tags and reviews.
func (s *MenuService) Get(ctx context.Context, userID, itemID string) (*model.MenuItem, error) {
	item, err := visibleMenuItem(ctx, s.store, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := loadItemDetail(ctx, s.store, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create stores a new item in the caller's active group (or privately when
// there is none) together with its recipes, ingredients and tags.
func (s *MenuService) Create(ctx context.Context, userID string, in model.MenuItemInput) (*model.MenuItem, error) {
	if err := validateMenuItemInput(&in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/menu: loading user: %w", err)
	}

	item := &model.MenuItem{UserID: userID, GroupID: user.ActiveGroupID}
	applyMenuItemInput(item, in)

	err = runTx(ctx, s.store, s.logger, "create menu item", func(tx repository.Store) error {
		if err := tx.CreateMenuItem(ctx, item); err != nil {
			return err
		}
		return replaceItemChildren(ctx, tx, item.ID, in)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("menu item created",
		slog.String("itemID", item.ID),
		slog.String("userID", userID),
	)
	return s.Get(ctx, userID, item.ID)
}

// Update rewrites the item's fields. Recipes, ingredients and tags are only
// replaced when the input carries them.
func (s *MenuService) Update(ctx context.Context, userID, itemID string, in model.MenuItemInput) (*model.MenuItem, error) {
	if err := validateMenuItemInput(&in); err != nil {
		return nil, err
	}

	err := runTx(ctx, s.store, s.logger, "update menu item", func(tx repository.Store) error {
		item, err := visibleMenuItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		applyMenuItemInput(item, in)
		if err := tx.UpdateMenuItem(ctx, item); err != nil {
			return err
		}
		return replaceItemChildren(ctx, tx, item.ID, in)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, itemID)
}

// Delete removes a visible item. Recipes, ingredients, tags, ratings, plans
// and share links go with it.
func (s *MenuService) Delete(ctx context.Context, userID, itemID string) error {
	if _, err := visibleMenuItem(ctx, s.store, userID, itemID); err != nil {
		return err
	}
	if err := s.store.DeleteMenuItem(ctx, itemID); err != nil {
		return fmt.Errorf("service/menu: deleting item: %w", err)
	}
	s.logger.Info("menu item deleted",
		slog.String("itemID", itemID),
		slog.String("userID", userID),
	)
	return nil
}

// ToggleFavorite flips the item's favorite flag in a single statement.
func (s *MenuService) ToggleFavorite(ctx context.Context, userID, itemID string) (*model.MenuItem, error) {
	if _, err := visibleMenuItem(ctx, s.store, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.store.ToggleFavorite(ctx, itemID); err != nil {
		return nil, fmt.Errorf("service/menu: toggling favorite: %w", err)
	}
	return s.Get(ctx, userID, itemID)
}

// Rate records the caller's 1..5 rating, replacing any earlier one.
func (s *MenuService) Rate(ctx context.Context, userID, itemID string, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return apperror.ValidationFailed("rating", "Rating must be between 1 and 5")
	}

	return runTx(ctx, s.store, s.logger, "save rating", func(tx repository.Store) error {
		if _, err := visibleMenuItem(ctx, tx, userID, itemID); err != nil {
			return err
		}
		return tx.UpsertRating(ctx, &model.Review{
			MenuItemID: itemID,
			UserID:     userID,
			Rating:     rating,
			Review:     strings.TrimSpace(review),
		})
	})
}

// ListTags returns the global tag vocabulary, alphabetically.
func (s *MenuService) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/menu: listing tags: %w", err)
	}
	return tags, nil
}

// ListIngredients returns the global ingredient vocabulary, alphabetically.
func (s *MenuService) ListIngredients(ctx context.Context) ([]model.Ingredient, error) {
	ingredients, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/menu: listing ingredients: %w", err)
	}
	return ingredients, nil
}

// =========================================================================
// HELPERS
// =========================================================================

// visibleMenuItem loads an item the user may see: one in a group they belong
// to, or an ungrouped item they created.
func visibleMenuItem(ctx context.Context, store repository.Store, userID, itemID string) (*model.MenuItem, error) {
	item, err := store.GetMenuItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("menu item", itemID)
		}
		return nil, fmt.Errorf("service/menu: loading item: %w", err)
	}

	if item.GroupID == nil {
		if item.UserID != userID {
			return nil, apperror.NotFound("menu item", itemID)
		}
		return item, nil
	}

	if _, err := store.GetMembership(ctx, *item.GroupID, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("menu item", itemID)
		}
		return nil, fmt.Errorf("service/menu: checking membership: %w", err)
	}
	return item, nil
}

func loadItemDetail(ctx context.Context, menu repository.MenuRepository, item *model.MenuItem) error {
	var err error
	if item.Recipes, err = menu.ListRecipeSteps(ctx, item.ID); err != nil {
		return fmt.Errorf("service/menu: loading recipes: %w", err)
	}
	if item.Ingredients, err = menu.ListItemIngredients(ctx, item.ID); err != nil {
		return fmt.Errorf("service/menu: loading ingredients: %w", err)
	}
	if item.Tags, err = menu.ListItemTags(ctx, item.ID); err != nil {
		return fmt.Errorf("service/menu: loading tags: %w", err)
	}
	if item.Reviews, err = menu.ListReviews(ctx, item.ID); err != nil {
		return fmt.Errorf("service/menu: loading reviews: %w", err)
	}
	return nil
}

func replaceItemChildren(ctx context.Context, tx repository.Store, itemID string, in model.MenuItemInput) error {
	if in.Recipes != nil {
		if err := tx.ReplaceRecipeSteps(ctx, itemID, in.Recipes); err != nil {
			return err
		}
	}
	if in.Ingredients != nil {
		if err := tx.ReplaceIngredients(ctx, itemID, in.Ingredients); err != nil {
			return err
		}
	}
	if in.Tags != nil {
		if err := tx.ReplaceTags(ctx, itemID, in.Tags); err != nil {
			return err
		}
	}
	return nil
}

func applyMenuItemInput(item *model.MenuItem, in model.MenuItemInput) {
	item.Name = in.Name
	item.Description = in.Description
	item.Category = in.Category
	item.Price = in.Price
	item.ImageURL = in.ImageURL
	item.Contributor = in.Contributor
	item.PrepTimeMinutes = in.PrepTimeMinutes
	item.CookTimeMinutes = in.CookTimeMinutes
	item.Servings = in.Servings
	item.Difficulty = in.Difficulty
	item.CuisineType = in.CuisineType
}

// validateMenuItemInput trims the input in place, drops blank recipe steps
// and tags, and rejects anything the store should never see.
func validateMenuItemInput(in *model.MenuItemInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if utf8.RuneCountInString(in.Name) > maxMenuItemNameLength {
		return apperror.ValidationFailed("name", fmt.Sprintf("Name must be at most %d characters", maxMenuItemNameLength))
	}
	in.Category = strings.TrimSpace(in.Category)

	if in.Price != nil && *in.Price < 0 {
		return apperror.ValidationFailed("price", "Price cannot be negative")
	}
	for field, v := range map[string]*int{
		"prep_time_minutes": in.PrepTimeMinutes,
		"cook_time_minutes": in.CookTimeMinutes,
		"servings":          in.Servings,
	} {
		if v != nil && *v < 0 {
			return apperror.ValidationFailed(field, field+" cannot be negative")
		}
	}

	if in.Recipes != nil {
		steps := make([]string, 0, len(in.Recipes))
		for _, step := range in.Recipes {
			if step = strings.TrimSpace(step); step != "" {
				steps = append(steps, step)
			}
		}
		in.Recipes = steps
	}

	for i := range in.Ingredients {
		ing := &in.Ingredients[i]
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Category = strings.TrimSpace(ing.Category)
		if ing.Name == "" {
			return apperror.ValidationFailed("ingredients", "Every ingredient needs a name")
		}
		if ing.Quantity < 0 {
			return apperror.ValidationFailed("ingredients", "Ingredient quantity cannot be negative")
		}
	}

	if in.Tags != nil {
		tags := make([]string, 0, len(in.Tags))
		for _, tag := range in.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		in.Tags = tags
	}
	return nil
}
