package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

const menuItemColumns = `mi.id, mi.name, mi.description, mi.category, mi.price, mi.image_url,
	mi.contributor, mi.prep_time_minutes, mi.cook_time_minutes, mi.servings, mi.difficulty,
	mi.cuisine_type, mi.is_favorite, mi.user_id, mi.group_id, mi.created_at, mi.updated_at,
	(SELECT COALESCE(AVG(r.rating), 0) FROM ratings r WHERE r.menu_item_id = mi.id) AS avg_rating,
	(SELECT COUNT(*) FROM ratings r WHERE r.menu_item_id = mi.id) AS rating_count`

func scanMenuItem(row interface{ Scan(...any) error }, extra ...any) (*model.MenuItem, error) {
	var m model.MenuItem
	dest := []any{
		&m.ID, &m.Name, &m.Description, &m.Category, &m.Price, &m.ImageURL,
		&m.Contributor, &m.PrepTimeMinutes, &m.CookTimeMinutes, &m.Servings, &m.Difficulty,
		&m.CuisineType, &m.IsFavorite, &m.UserID, &m.GroupID, &m.CreatedAt, &m.UpdatedAt,
		&m.AvgRating, &m.RatingCount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Tags = []model.Tag{}
	return &m, nil
}

// CreateMenuItem inserts the item row only; recipes, ingredients and tags are
// written by the Replace* methods within the same unit of work.
func (db *DB) CreateMenuItem(ctx context.Context, item *model.MenuItem) error {
	now := db.timestamp()
	item.ID = xid.New().String()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := db.exec(ctx,
		`INSERT INTO menu_items (id, name, description, category, price, image_url, contributor,
			prep_time_minutes, cook_time_minutes, servings, difficulty, cuisine_type, is_favorite,
			user_id, group_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category, item.Price, item.ImageURL, item.Contributor,
		item.PrepTimeMinutes, item.CookTimeMinutes, item.Servings, item.Difficulty, item.CuisineType,
		item.IsFavorite, item.UserID, item.GroupID, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting menu item: %w", err)
	}
	return nil
}

// UpdateMenuItem rewrites the descriptive columns. Ownership columns
// (user_id, group_id) and is_favorite are not touched.
func (db *DB) UpdateMenuItem(ctx context.Context, item *model.MenuItem) error {
	item.UpdatedAt = db.timestamp()

	ok, err := db.execAffecting(ctx,
		`UPDATE menu_items SET name = ?, description = ?, category = ?, price = ?, image_url = ?,
			contributor = ?, prep_time_minutes = ?, cook_time_minutes = ?, servings = ?,
			difficulty = ?, cuisine_type = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name, item.Description, item.Category, item.Price, item.ImageURL,
		item.Contributor, item.PrepTimeMinutes, item.CookTimeMinutes, item.Servings,
		item.Difficulty, item.CuisineType, item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating menu item %s: %w", item.ID, err)
	}
	if !ok {
		return apperror.NotFound("menu item", item.ID)
	}
	return nil
}

// GetMenuItem returns the item with rating aggregates and the creator's name.
func (db *DB) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var userName sql.NullString
	item, err := scanMenuItem(db.queryRow(ctx,
		`SELECT `+menuItemColumns+`, u.name
		 FROM menu_items mi
		 LEFT JOIN users u ON u.id = mi.user_id
		 WHERE mi.id = ?`, id,
	), &userName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("menu item", id)
		}
		return nil, fmt.Errorf("sqlstore: getting menu item %s: %w", id, err)
	}
	item.UserName = userName.String
	return item, nil
}

// ListMenuItems returns items newest first, each with its tags.
func (db *DB) ListMenuItems(ctx context.Context, filter model.MenuFilter, opts repository.ListOptions) ([]model.MenuItem, error) {
	var where []string
	var args []any

	switch {
	case filter.GroupID != "":
		where = append(where, "mi.group_id = ?")
		args = append(args, filter.GroupID)
	case filter.OwnerID != "":
		where = append(where, "mi.user_id = ? AND mi.group_id IS NULL")
		args = append(args, filter.OwnerID)
	}
	if filter.Category != "" {
		where = append(where, "mi.category = ?")
		args = append(args, filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		where = append(where, "(LOWER(mi.name) LIKE ? OR LOWER(mi.description) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if filter.FavoritesOnly {
		where = append(where, "mi.is_favorite = ?")
		args = append(args, true)
	}

	q := `SELECT ` + menuItemColumns + ` FROM menu_items mi`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY mi.created_at DESC, mi.id DESC`
	if opts.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing menu items: %w", err)
	}

	items := []model.MenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlstore: scanning menu item: %w", err)
		}
		items = append(items, *item)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: iterating menu items: %w", err)
	}

	if err := db.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachTags loads the tags of all items in one query. It runs after the item
// rows are closed: SQLite uses a single connection.
func (db *DB) attachTags(ctx context.Context, items []model.MenuItem) error {
	if len(items) == 0 {
		return nil
	}

	index := make(map[string]int, len(items))
	args := make([]any, 0, len(items))
	for i := range items {
		index[items[i].ID] = i
		args = append(args, items[i].ID)
	}

	rows, err := db.query(ctx,
		`SELECT mit.menu_item_id, t.id, t.name
		 FROM menu_item_tags mit
		 JOIN tags t ON t.id = mit.tag_id
		 WHERE mit.menu_item_id IN (`+placeholders(len(args))+`)
		 ORDER BY t.name`, args...,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var t model.Tag
		if err := rows.Scan(&itemID, &t.ID, &t.Name); err != nil {
			return fmt.Errorf("sqlstore: scanning tag: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].Tags = append(items[i].Tags, t)
		}
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// DeleteMenuItem deletes an item; dependants cascade.
func (db *DB) DeleteMenuItem(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting menu item %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("menu item", id)
	}
	return nil
}

// ToggleFavorite flips is_favorite in a single statement.
func (db *DB) ToggleFavorite(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx,
		`UPDATE menu_items SET is_favorite = NOT is_favorite, updated_at = ? WHERE id = ?`,
		db.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: toggling favorite on %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("menu item", id)
	}
	return nil
}

// =========================================================================
// RECIPES, INGREDIENTS, TAGS
// =========================================================================

// ReplaceRecipeSteps swaps the item's steps for steps, numbered from 1.
func (db *DB) ReplaceRecipeSteps(ctx context.Context, itemID string, steps []string) error {
	if _, err := db.exec(ctx, `DELETE FROM recipe_steps WHERE menu_item_id = ?`, itemID); err != nil {
		return fmt.Errorf("sqlstore: clearing recipe steps: %w", err)
	}
	for i, instructions := range steps {
		_, err := db.exec(ctx,
			`INSERT INTO recipe_steps (id, menu_item_id, step_number, instructions) VALUES (?, ?, ?, ?)`,
			xid.New().String(), itemID, i+1, instructions,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: inserting recipe step %d: %w", i+1, err)
		}
	}
	return nil
}

// ReplaceIngredients swaps the item's ingredient links, creating unknown
// ingredients by name.
func (db *DB) ReplaceIngredients(ctx context.Context, itemID string, ingredients []model.IngredientInput) error {
	if _, err := db.exec(ctx, `DELETE FROM menu_item_ingredients WHERE menu_item_id = ?`, itemID); err != nil {
		return fmt.Errorf("sqlstore: clearing ingredients: %w", err)
	}
	for _, in := range ingredients {
		ingredientID, err := db.ingredientID(ctx, in.Name, in.Category)
		if err != nil {
			return err
		}
		_, err = db.exec(ctx,
			`INSERT INTO menu_item_ingredients (id, menu_item_id, ingredient_id, quantity, unit, notes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			xid.New().String(), itemID, ingredientID, in.Quantity, in.Unit, in.Notes,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: linking ingredient %q: %w", in.Name, err)
		}
	}
	return nil
}

// ingredientID returns the id of the ingredient called name, creating it on
// first use. Names match case-insensitively.
func (db *DB) ingredientID(ctx context.Context, name, category string) (string, error) {
	var id string
	err := db.queryRow(ctx, `SELECT id FROM ingredients WHERE LOWER(name) = LOWER(?)`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sqlstore: looking up ingredient %q: %w", name, err)
	}

	if category == "" {
		category = model.DefaultIngredientCategory
	}
	id = xid.New().String()
	if _, err := db.exec(ctx,
		`INSERT INTO ingredients (id, name, category) VALUES (?, ?, ?)`, id, name, category,
	); err != nil {
		return "", fmt.Errorf("sqlstore: inserting ingredient %q: %w", name, err)
	}
	return id, nil
}

// ReplaceTags swaps the item's tag links, creating unknown tags by name.
func (db *DB) ReplaceTags(ctx context.Context, itemID string, tags []string) error {
	if _, err := db.exec(ctx, `DELETE FROM menu_item_tags WHERE menu_item_id = ?`, itemID); err != nil {
		return fmt.Errorf("sqlstore: clearing tags: %w", err)
	}

	seen := make(map[string]bool, len(tags))
	for _, name := range tags {
		tagID, err := db.tagID(ctx, name)
		if err != nil {
			return err
		}
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		if _, err := db.exec(ctx,
			`INSERT INTO menu_item_tags (menu_item_id, tag_id) VALUES (?, ?)`, itemID, tagID,
		); err != nil {
			return fmt.Errorf("sqlstore: linking tag %q: %w", name, err)
		}
	}
	return nil
}

func (db *DB) tagID(ctx context.Context, name string) (string, error) {
	var id string
	err := db.queryRow(ctx, `SELECT id FROM tags WHERE LOWER(name) = LOWER(?)`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sqlstore: looking up tag %q: %w", name, err)
	}

	id = xid.New().String()
	if _, err := db.exec(ctx, `INSERT INTO tags (id, name) VALUES (?, ?)`, id, name); err != nil {
		return "", fmt.Errorf("sqlstore: inserting tag %q: %w", name, err)
	}
	return id, nil
}

// ListRecipeSteps orders steps by step number.
func (db *DB) ListRecipeSteps(ctx context.Context, itemID string) ([]model.RecipeStep, error) {
	rows, err := db.query(ctx,
		`SELECT id, step_number, instructions FROM recipe_steps
		 WHERE menu_item_id = ? ORDER BY step_number`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing recipe steps: %w", err)
	}
	defer rows.Close()

	steps := []model.RecipeStep{}
	for rows.Next() {
		var s model.RecipeStep
		if err := rows.Scan(&s.ID, &s.StepNumber, &s.Instructions); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning recipe step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// ListItemIngredients returns the item's ingredients with quantity and unit.
func (db *DB) ListItemIngredients(ctx context.Context, itemID string) ([]model.ItemIngredient, error) {
	rows, err := db.query(ctx,
		`SELECT i.id, i.name, i.category, mii.quantity, mii.unit, mii.notes
		 FROM menu_item_ingredients mii
		 JOIN ingredients i ON i.id = mii.ingredient_id
		 WHERE mii.menu_item_id = ?
		 ORDER BY i.name`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing item ingredients: %w", err)
	}
	defer rows.Close()

	out := []model.ItemIngredient{}
	for rows.Next() {
		var in model.ItemIngredient
		if err := rows.Scan(&in.IngredientID, &in.Name, &in.Category, &in.Quantity, &in.Unit, &in.Notes); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning item ingredient: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListItemTags returns the item's tags by name.
func (db *DB) ListItemTags(ctx context.Context, itemID string) ([]model.Tag, error) {
	rows, err := db.query(ctx,
		`SELECT t.id, t.name FROM menu_item_tags mit
		 JOIN tags t ON t.id = mit.tag_id
		 WHERE mit.menu_item_id = ?
		 ORDER BY t.name`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing item tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]model.Tag, error) {
	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// =========================================================================
// RATINGS
// =========================================================================

// ListReviews returns ratings newest first with the reviewer's name.
func (db *DB) ListReviews(ctx context.Context, itemID string) ([]model.Review, error) {
	rows, err := db.query(ctx,
		`SELECT r.id, r.menu_item_id, r.user_id, u.name, r.rating, r.review, r.created_at
		 FROM ratings r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.menu_item_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.MenuItemID, &r.UserID, &r.UserName, &r.Rating, &r.Review, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// UpsertRating keeps one rating per (item, user). It is an update-then-insert
// pair, so callers run it inside WithinTx.
func (db *DB) UpsertRating(ctx context.Context, r *model.Review) error {
	r.CreatedAt = db.timestamp()

	updated, err := db.execAffecting(ctx,
		`UPDATE ratings SET rating = ?, review = ?, created_at = ?
		 WHERE menu_item_id = ? AND user_id = ?`,
		r.Rating, r.Review, r.CreatedAt, r.MenuItemID, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating rating: %w", err)
	}
	if updated {
		return nil
	}

	r.ID = xid.New().String()
	_, err = db.exec(ctx,
		`INSERT INTO ratings (id, menu_item_id, user_id, rating, review, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.MenuItemID, r.UserID, r.Rating, r.Review, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting rating: %w", err)
	}
	return nil
}

// =========================================================================
// VOCABULARIES
// =========================================================================

// ListTags returns every tag alphabetically.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// ListIngredients returns every ingredient alphabetically.
func (db *DB) ListIngredients(ctx context.Context) ([]model.Ingredient, error) {
	rows, err := db.query(ctx, `SELECT id, name, category FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing ingredients: %w", err)
	}
	defer rows.Close()

	out := []model.Ingredient{}
	for rows.Next() {
		var in model.Ingredient
		if err := rows.Scan(&in.ID, &in.Name, &in.Category); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning ingredient: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
