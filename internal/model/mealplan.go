package model

import "time"

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Meal types a plan can be scheduled for.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// ValidMealType reports whether t is a known meal slot.
func ValidMealType(t string) bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// MealPlan puts one menu item on one user's calendar.
// MealName, ImageURL and Category are joined in from the menu item on read.
type MealPlan struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	MenuItemID  string    `json:"menu_item_id"`
	PlannedDate string    `json:"planned_date"`
	MealType    string    `json:"meal_type"`
	Notes       string    `json:"notes"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	MealName string `json:"meal_name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Category string `json:"category,omitempty"`
}

// MealPlanInput is the request body for creating or updating a plan.
// On update, nil fields are left unchanged.
type MealPlanInput struct {
	MenuItemID  string  `json:"menu_item_id"`
	PlannedDate *string `json:"planned_date"`
	MealType    *string `json:"meal_type"`
	Notes       *string `json:"notes"`
	Completed   *bool   `json:"completed"`
}

// ShoppingList is a named list generated from a range of meal plans.
type ShoppingList struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Name         string             `json:"name"`
	CreatedAt    time.Time          `json:"created_at"`
	ItemCount    int                `json:"item_count"`
	CheckedCount int                `json:"checked_count"`
	Items        []ShoppingListItem `json:"items,omitempty"`
}

// ShoppingListItem is one ingredient and unit on a list with its summed quantity.
type ShoppingListItem struct {
	ID             string  `json:"id"`
	ShoppingListID string  `json:"shopping_list_id"`
	IngredientID   string  `json:"ingredient_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Checked        bool    `json:"checked"`
}
