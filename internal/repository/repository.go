// Package repository declares the storage contracts used by the service layer.
//
// Services depend on these interfaces, never on a concrete database. The
// sqlstore package implements all of them on top of database/sql.
//
// Lookups that find nothing return an error wrapping apperror.ErrNotFound.
package repository

import (
	"context"

	"github.com/sakif/menu-planner/internal/model"
)

// ListOptions paginates list queries. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists users and their active group pointer.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	// UpdateUserProfile writes name, avatar_url and updated_at.
	UpdateUserProfile(ctx context.Context, user *model.User) error
	UpdateThemePreference(ctx context.Context, userID, theme string) error

	SetActiveGroup(ctx context.Context, userID, groupID string) error
	// SetActiveGroupIfUnset only writes when active_group_id is NULL.
	SetActiveGroupIfUnset(ctx context.Context, userID, groupID string) error
	// ClearActiveGroupIf nulls active_group_id only when it equals groupID.
	ClearActiveGroupIf(ctx context.Context, userID, groupID string) (bool, error)
}

// GroupRepository persists groups, invite codes and memberships.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroupByID(ctx context.Context, id string) (*model.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*model.Group, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	UpdateInviteCode(ctx context.Context, groupID, code string) error

	AddMember(ctx context.Context, m *model.Membership) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	GetMembership(ctx context.Context, groupID, userID string) (*model.Membership, error)
	// FirstMembership returns the user's earliest membership by join time.
	FirstMembership(ctx context.Context, userID string) (*model.Membership, error)

	// ListGroupsForUser annotates each group with the user's role and a live member count.
	ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error)
	// GetGroupForUser is the same read model for one group; NotFound when the
	// user is not a member.
	GetGroupForUser(ctx context.Context, groupID, userID string) (*model.Group, error)
	// GetActiveGroup resolves the user's active pointer through a membership join.
	GetActiveGroup(ctx context.Context, userID string) (*model.Group, error)
	// ListMembers orders owners first, then by join time.
	ListMembers(ctx context.Context, groupID string) ([]model.Member, error)
}

// MenuRepository persists menu items, their children and the global vocabularies.
type MenuRepository interface {
	CreateMenuItem(ctx context.Context, item *model.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *model.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	ListMenuItems(ctx context.Context, filter model.MenuFilter, opts ListOptions) ([]model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) error

	ReplaceRecipeSteps(ctx context.Context, itemID string, steps []string) error
	ReplaceIngredients(ctx context.Context, itemID string, ingredients []model.IngredientInput) error
	ReplaceTags(ctx context.Context, itemID string, tags []string) error

	ListRecipeSteps(ctx context.Context, itemID string) ([]model.RecipeStep, error)
	ListItemIngredients(ctx context.Context, itemID string) ([]model.ItemIngredient, error)
	ListItemTags(ctx context.Context, itemID string) ([]model.Tag, error)
	ListReviews(ctx context.Context, itemID string) ([]model.Review, error)
	UpsertRating(ctx context.Context, r *model.Review) error

	ListTags(ctx context.Context) ([]model.Tag, error)
	ListIngredients(ctx context.Context) ([]model.Ingredient, error)
}

// MealPlanRepository persists meal plans and shopping lists.
type MealPlanRepository interface {
	CreateMealPlan(ctx context.Context, plan *model.MealPlan) error
	GetMealPlan(ctx context.Context, id string) (*model.MealPlan, error)
	// ListMealPlans returns plans with start <= planned_date <= end (YYYY-MM-DD).
	ListMealPlans(ctx context.Context, userID, start, end string) ([]model.MealPlan, error)
	UpdateMealPlan(ctx context.Context, plan *model.MealPlan) error
	DeleteMealPlan(ctx context.Context, id string) error

	// AggregateShoppingItems sums ingredient quantities over planned meals in range.
	AggregateShoppingItems(ctx context.Context, userID, start, end string) ([]model.ShoppingListItem, error)
	CreateShoppingList(ctx context.Context, list *model.ShoppingList) error
	AddShoppingListItem(ctx context.Context, item *model.ShoppingListItem) error
	GetShoppingList(ctx context.Context, id string) (*model.ShoppingList, error)
	ListShoppingLists(ctx context.Context, userID string) ([]model.ShoppingList, error)
	ListShoppingListItems(ctx context.Context, listID string) ([]model.ShoppingListItem, error)
	ToggleShoppingListItem(ctx context.Context, listID, itemID string) (*model.ShoppingListItem, error)
	DeleteShoppingList(ctx context.Context, id string) error
}

// ShareRepository persists public share links.
type ShareRepository interface {
	CreateShareLink(ctx context.Context, link *model.ShareLink) error
	GetShareLinkByToken(ctx context.Context, token string) (*model.ShareLink, error)
	GetShareLink(ctx context.Context, id string) (*model.ShareLink, error)
	IncrementShareViews(ctx context.Context, id string) error
	ListShareLinks(ctx context.Context, itemID string) ([]model.ShareLink, error)
	DeleteShareLink(ctx context.Context, id string) error
}

// Store is the full set of repositories plus a unit of work.
//
// WithinTx runs fn against a Store bound to one transaction. The transaction
// commits if fn returns nil and rolls back if fn returns an error or panics.
// Calling WithinTx on a Store that is already transactional joins the outer
// transaction.
type Store interface {
	UserRepository
	GroupRepository
	MenuRepository
	MealPlanRepository
	ShareRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
