package model

import "time"

// DefaultIngredientCategory is used when an ingredient is first seen without one.
const DefaultIngredientCategory = "Other"

// MenuItem is a dish in a group's menu.
//
// AvgRating, RatingCount and Tags are computed on read. The detail fields
// (Recipes, Ingredients, Reviews, UserName) are only populated by a
// single-item lookup.
type MenuItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Price           *float64  `json:"price"`
	ImageURL        string    `json:"image_url"`
	Contributor     string    `json:"contributor"`
	PrepTimeMinutes *int      `json:"prep_time_minutes"`
	CookTimeMinutes *int      `json:"cook_time_minutes"`
	Servings        *int      `json:"servings"`
	Difficulty      string    `json:"difficulty"`
	CuisineType     string    `json:"cuisine_type"`
	IsFavorite      bool      `json:"is_favorite"`
	UserID          string    `json:"user_id"`
	GroupID         *string   `json:"group_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
	Tags        []Tag   `json:"tags"`

	UserName    string           `json:"user_name,omitempty"`
	Recipes     []RecipeStep     `json:"recipes,omitempty"`
	Ingredients []ItemIngredient `json:"ingredients,omitempty"`
	Reviews     []Review         `json:"reviews,omitempty"`
}

// RecipeStep is one numbered instruction of a recipe.
type RecipeStep struct {
	ID           string `json:"id"`
	StepNumber   int    `json:"step_number"`
	Instructions string `json:"instructions"`
}

// Ingredient is an entry in the global ingredient vocabulary.
type Ingredient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ItemIngredient is an ingredient as used by one menu item.
type ItemIngredient struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Notes        string  `json:"notes"`
}

// Tag is an entry of the global tag vocabulary.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Review is a rating left by one user on one menu item.
type Review struct {
	ID         string    `json:"id"`
	MenuItemID string    `json:"menu_item_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"created_at"`
}

// MenuFilter narrows a menu listing. Exactly one of GroupID or OwnerID is
// expected to be set by the service.
type MenuFilter struct {
	GroupID       string
	OwnerID       string
	Category      string
	Search        string
	FavoritesOnly bool
}

// IngredientInput describes one ingredient line in a create/update request.
type IngredientInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
}

// MenuItemInput is the request body for creating or updating a menu item.
//
// A nil Recipes, Ingredients or Tags slice leaves the existing rows untouched
// on update; an empty non-nil slice clears them.
type MenuItemInput struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	Price           *float64          `json:"price"`
	ImageURL        string            `json:"image_url"`
	Contributor     string            `json:"contributor"`
	PrepTimeMinutes *int              `json:"prep_time_minutes"`
	CookTimeMinutes *int              `json:"cook_time_minutes"`
	Servings        *int              `json:"servings"`
	Difficulty      string            `json:"difficulty"`
	CuisineType     string            `json:"cuisine_type"`
	Recipes         []string          `json:"recipes"`
	Ingredients     []IngredientInput `json:"ingredients"`
	Tags            []string          `json:"tags"`
}
