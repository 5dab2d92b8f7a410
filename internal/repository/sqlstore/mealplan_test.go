package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
)

func createTestPlan(t *testing.T, db *DB, user *model.User, item *model.MenuItem, date, mealType string) *model.MealPlan {
	t.Helper()
	p := &model.MealPlan{UserID: user.ID, MenuItemID: item.ID, PlannedDate: date, MealType: mealType}
	if err := db.CreateMealPlan(context.Background(), p); err != nil {
		t.Fatalf("failed to create test plan: %v", err)
	}
	return p
}

func TestListMealPlans_RangeAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-u", "U")
	other := createTestUser(t, db, "g-o", "O")
	item := createTestItem(t, db, user, nil, "Oats", "Breakfast")

	createTestPlan(t, db, user, item, "2024-05-02", model.MealDinner)
	createTestPlan(t, db, user, item, "2024-05-02", model.MealBreakfast)
	createTestPlan(t, db, user, item, "2024-05-01", model.MealLunch)
	createTestPlan(t, db, user, item, "2024-05-08", model.MealLunch)
	createTestPlan(t, db, other, item, "2024-05-02", model.MealLunch)

	plans, err := db.ListMealPlans(ctx, user.ID, "2024-05-01", "2024-05-07")
	if err != nil {
		t.Fatalf("ListMealPlans() error = %v", err)
	}

	want := []struct{ date, meal string }{
		{"2024-05-01", model.MealLunch},
		{"2024-05-02", model.MealBreakfast},
		{"2024-05-02", model.MealDinner},
	}
	if len(plans) != len(want) {
		t.Fatalf("len(plans) = %d, want %d", len(plans), len(want))
	}
	for i, w := range want {
		if plans[i].PlannedDate != w.date || plans[i].MealType != w.meal {
			t.Errorf("plans[%d] = %s %s, want %s %s", i, plans[i].PlannedDate, plans[i].MealType, w.date, w.meal)
		}
		if plans[i].MealName != "Oats" {
			t.Errorf("plans[%d].MealName = %q, want Oats", i, plans[i].MealName)
		}
	}
}

func TestUpdateAndDeleteMealPlan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-u", "U")
	item := createTestItem(t, db, user, nil, "Oats", "Breakfast")
	plan := createTestPlan(t, db, user, item, "2024-05-01", model.MealBreakfast)

	plan.Completed = true
	plan.Notes = "add berries"
	if err := db.UpdateMealPlan(ctx, plan); err != nil {
		t.Fatalf("UpdateMealPlan() error = %v", err)
	}
	found, err := db.GetMealPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetMealPlan() error = %v", err)
	}
	if !found.Completed || found.Notes != "add berries" {
		t.Errorf("GetMealPlan() = %+v", found)
	}

	if err := db.DeleteMealPlan(ctx, plan.ID); err != nil {
		t.Fatalf("DeleteMealPlan() error = %v", err)
	}
	if _, err := db.GetMealPlan(ctx, plan.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMealPlan(deleted) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// SHOPPING LIST TESTS
// =========================================================================

func TestAggregateShoppingItems_SumsPerIngredientAndUnit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-u", "U")
	dal := createTestItem(t, db, user, nil, "Dal", "Main")
	rice := createTestItem(t, db, user, nil, "Rice", "Side")
	db.ReplaceIngredients(ctx, dal.ID, []model.IngredientInput{
		{Name: "Lentils", Category: "Pantry", Quantity: 200, Unit: "g"},
		{Name: "Onion", Category: "Produce", Quantity: 1, Unit: "pc"},
	})
	db.ReplaceIngredients(ctx, rice.ID, []model.IngredientInput{
		{Name: "Onion", Quantity: 50, Unit: "g"},
		{Name: "Rice", Category: "Pantry", Quantity: 150, Unit: "g"},
	})

	createTestPlan(t, db, user, dal, "2024-05-01", model.MealDinner)
	createTestPlan(t, db, user, dal, "2024-05-02", model.MealDinner)
	createTestPlan(t, db, user, rice, "2024-05-02", model.MealDinner)
	createTestPlan(t, db, user, rice, "2024-06-01", model.MealDinner)

	items, err := db.AggregateShoppingItems(ctx, user.ID, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("AggregateShoppingItems() error = %v", err)
	}

	got := map[string]float64{}
	for _, it := range items {
		got[it.Name+"/"+it.Unit] = it.Quantity
	}
	want := map[string]float64{
		"Lentils/g": 400,
		"Onion/pc":  2,
		"Onion/g":   50,
		"Rice/g":    150,
	}
	if len(got) != len(want) {
		t.Fatalf("aggregate = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestShoppingListLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-u", "U")
	item := createTestItem(t, db, user, nil, "Dal", "Main")
	db.ReplaceIngredients(ctx, item.ID, []model.IngredientInput{{Name: "Lentils", Quantity: 1, Unit: "cup"}})
	all, _ := db.ListIngredients(ctx)

	list := &model.ShoppingList{UserID: user.ID, Name: "Week 18"}
	if err := db.CreateShoppingList(ctx, list); err != nil {
		t.Fatalf("CreateShoppingList() error = %v", err)
	}
	line := &model.ShoppingListItem{ShoppingListID: list.ID, IngredientID: all[0].ID, Quantity: 2, Unit: "cup"}
	if err := db.AddShoppingListItem(ctx, line); err != nil {
		t.Fatalf("AddShoppingListItem() error = %v", err)
	}

	toggled, err := db.ToggleShoppingListItem(ctx, list.ID, line.ID)
	if err != nil {
		t.Fatalf("ToggleShoppingListItem() error = %v", err)
	}
	if !toggled.Checked || toggled.Name != "Lentils" {
		t.Errorf("toggled = %+v", toggled)
	}
	if _, err := db.ToggleShoppingListItem(ctx, "other-list", line.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ToggleShoppingListItem(wrong list) error = %v, want ErrNotFound", err)
	}

	lists, err := db.ListShoppingLists(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListShoppingLists() error = %v", err)
	}
	if len(lists) != 1 || lists[0].ItemCount != 1 || lists[0].CheckedCount != 1 {
		t.Errorf("ListShoppingLists() = %+v", lists)
	}

	if err := db.DeleteShoppingList(ctx, list.ID); err != nil {
		t.Fatalf("DeleteShoppingList() error = %v", err)
	}
	items, _ := db.ListShoppingListItems(ctx, list.ID)
	if len(items) != 0 {
		t.Errorf("items survived list delete: %v", items)
	}
	if _, err := db.GetShoppingList(ctx, list.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetShoppingList(deleted) error = %v, want ErrNotFound", err)
	}
}
