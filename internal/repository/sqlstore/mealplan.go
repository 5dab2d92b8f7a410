package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
)

const mealPlanColumns = `mp.id, mp.user_id, mp.menu_item_id, mp.planned_date, mp.meal_type,
	mp.notes, mp.completed, mp.created_at, mp.updated_at,
	mi.name, mi.image_url, mi.category`

// mealTypeOrder sorts breakfast before lunch before dinner before snacks.
const mealTypeOrder = `CASE mp.meal_type
	WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'dinner' THEN 2 ELSE 3 END`

func scanMealPlan(row interface{ Scan(...any) error }) (*model.MealPlan, error) {
	var p model.MealPlan
	err := row.Scan(
		&p.ID, &p.UserID, &p.MenuItemID, &p.PlannedDate, &p.MealType,
		&p.Notes, &p.Completed, &p.CreatedAt, &p.UpdatedAt,
		&p.MealName, &p.ImageURL, &p.Category,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateMealPlan inserts a plan, filling in ID and timestamps.
func (db *DB) CreateMealPlan(ctx context.Context, plan *model.MealPlan) error {
	now := db.timestamp()
	plan.ID = xid.New().String()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	_, err := db.exec(ctx,
		`INSERT INTO meal_plans (id, user_id, menu_item_id, planned_date, meal_type, notes,
			completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.MenuItemID, plan.PlannedDate, plan.MealType, plan.Notes,
		plan.Completed, plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting meal plan: %w", err)
	}
	return nil
}

// GetMealPlan loads a plan joined with its menu item's name, image and category.
func (db *DB) GetMealPlan(ctx context.Context, id string) (*model.MealPlan, error) {
	p, err := scanMealPlan(db.queryRow(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans mp
		 JOIN menu_items mi ON mi.id = mp.menu_item_id
		 WHERE mp.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("meal plan", id)
		}
		return nil, fmt.Errorf("sqlstore: getting meal plan %s: %w", id, err)
	}
	return p, nil
}

// ListMealPlans relies on planned_date being stored as YYYY-MM-DD, which
// orders lexically the same as chronologically.
func (db *DB) ListMealPlans(ctx context.Context, userID, start, end string) ([]model.MealPlan, error) {
	rows, err := db.query(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans mp
		 JOIN menu_items mi ON mi.id = mp.menu_item_id
		 WHERE mp.user_id = ? AND mp.planned_date >= ? AND mp.planned_date <= ?
		 ORDER BY mp.planned_date, `+mealTypeOrder+`, mp.created_at`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing meal plans: %w", err)
	}
	defer rows.Close()

	plans := []model.MealPlan{}
	for rows.Next() {
		p, err := scanMealPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning meal plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// UpdateMealPlan writes the mutable fields; the menu item is fixed.
func (db *DB) UpdateMealPlan(ctx context.Context, plan *model.MealPlan) error {
	plan.UpdatedAt = db.timestamp()

	ok, err := db.execAffecting(ctx,
		`UPDATE meal_plans SET planned_date = ?, meal_type = ?, notes = ?, completed = ?, updated_at = ?
		 WHERE id = ?`,
		plan.PlannedDate, plan.MealType, plan.Notes, plan.Completed, plan.UpdatedAt, plan.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating meal plan %s: %w", plan.ID, err)
	}
	if !ok {
		return apperror.NotFound("meal plan", plan.ID)
	}
	return nil
}

// DeleteMealPlan deletes a plan by id.
func (db *DB) DeleteMealPlan(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx, `DELETE FROM meal_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting meal plan %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("meal plan", id)
	}
	return nil
}

// =========================================================================
// SHOPPING LISTS
// =========================================================================

// AggregateShoppingItems sums quantities per (ingredient, unit) across every
// meal the user planned in [start, end]. A dish planned twice counts twice.
func (db *DB) AggregateShoppingItems(ctx context.Context, userID, start, end string) ([]model.ShoppingListItem, error) {
	rows, err := db.query(ctx,
		`SELECT i.id, i.name, i.category, SUM(mii.quantity), mii.unit
		 FROM meal_plans mp
		 JOIN menu_item_ingredients mii ON mii.menu_item_id = mp.menu_item_id
		 JOIN ingredients i ON i.id = mii.ingredient_id
		 WHERE mp.user_id = ? AND mp.planned_date >= ? AND mp.planned_date <= ?
		 GROUP BY i.id, i.name, i.category, mii.unit
		 ORDER BY i.category, i.name, mii.unit`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: aggregating shopping items: %w", err)
	}
	defer rows.Close()

	items := []model.ShoppingListItem{}
	for rows.Next() {
		var it model.ShoppingListItem
		if err := rows.Scan(&it.IngredientID, &it.Name, &it.Category, &it.Quantity, &it.Unit); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning shopping aggregate: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateShoppingList inserts an empty list.
func (db *DB) CreateShoppingList(ctx context.Context, list *model.ShoppingList) error {
	list.ID = xid.New().String()
	list.CreatedAt = db.timestamp()

	_, err := db.exec(ctx,
		`INSERT INTO shopping_lists (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		list.ID, list.UserID, list.Name, list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting shopping list: %w", err)
	}
	return nil
}

// AddShoppingListItem inserts one item on a list.
func (db *DB) AddShoppingListItem(ctx context.Context, item *model.ShoppingListItem) error {
	item.ID = xid.New().String()

	_, err := db.exec(ctx,
		`INSERT INTO shopping_list_items (id, shopping_list_id, ingredient_id, quantity, unit, checked)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.ShoppingListID, item.IngredientID, item.Quantity, item.Unit, item.Checked,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting shopping list item: %w", err)
	}
	return nil
}

const shoppingListColumns = `sl.id, sl.user_id, sl.name, sl.created_at,
	(SELECT COUNT(*) FROM shopping_list_items c WHERE c.shopping_list_id = sl.id) AS item_count,
	(SELECT COUNT(*) FROM shopping_list_items c WHERE c.shopping_list_id = sl.id AND c.checked = ?) AS checked_count`

func scanShoppingList(row interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	if err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt, &l.ItemCount, &l.CheckedCount); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetShoppingList loads a list with its item and checked counts.
func (db *DB) GetShoppingList(ctx context.Context, id string) (*model.ShoppingList, error) {
	l, err := scanShoppingList(db.queryRow(ctx,
		`SELECT `+shoppingListColumns+` FROM shopping_lists sl WHERE sl.id = ?`, true, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("shopping list", id)
		}
		return nil, fmt.Errorf("sqlstore: getting shopping list %s: %w", id, err)
	}
	return l, nil
}

// ListShoppingLists returns the user's lists, newest first.
func (db *DB) ListShoppingLists(ctx context.Context, userID string) ([]model.ShoppingList, error) {
	rows, err := db.query(ctx,
		`SELECT `+shoppingListColumns+`
		 FROM shopping_lists sl
		 WHERE sl.user_id = ?
		 ORDER BY sl.created_at DESC, sl.id DESC`, true, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing shopping lists: %w", err)
	}
	defer rows.Close()

	lists := []model.ShoppingList{}
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning shopping list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

const shoppingItemColumns = `sli.id, sli.shopping_list_id, sli.ingredient_id, i.name, i.category,
	sli.quantity, sli.unit, sli.checked`

func scanShoppingItem(row interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var it model.ShoppingListItem
	err := row.Scan(&it.ID, &it.ShoppingListID, &it.IngredientID, &it.Name, &it.Category,
		&it.Quantity, &it.Unit, &it.Checked)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListShoppingListItems orders items by ingredient category, then name.
func (db *DB) ListShoppingListItems(ctx context.Context, listID string) ([]model.ShoppingListItem, error) {
	rows, err := db.query(ctx,
		`SELECT `+shoppingItemColumns+`
		 FROM shopping_list_items sli
		 JOIN ingredients i ON i.id = sli.ingredient_id
		 WHERE sli.shopping_list_id = ?
		 ORDER BY i.category, i.name, sli.unit`, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing shopping list items: %w", err)
	}
	defer rows.Close()

	items := []model.ShoppingListItem{}
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning shopping list item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// ToggleShoppingListItem flips checked on an item of listID and returns it.
func (db *DB) ToggleShoppingListItem(ctx context.Context, listID, itemID string) (*model.ShoppingListItem, error) {
	ok, err := db.execAffecting(ctx,
		`UPDATE shopping_list_items SET checked = NOT checked WHERE id = ? AND shopping_list_id = ?`,
		itemID, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: toggling shopping list item %s: %w", itemID, err)
	}
	if !ok {
		return nil, apperror.NotFound("shopping list item", itemID)
	}

	it, err := scanShoppingItem(db.queryRow(ctx,
		`SELECT `+shoppingItemColumns+`
		 FROM shopping_list_items sli
		 JOIN ingredients i ON i.id = sli.ingredient_id
		 WHERE sli.id = ?`, itemID,
	))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reloading shopping list item %s: %w", itemID, err)
	}
	return it, nil
}

// DeleteShoppingList deletes a list; its items cascade.
func (db *DB) DeleteShoppingList(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting shopping list %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("shopping list", id)
	}
	return nil
}
