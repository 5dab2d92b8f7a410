package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
)

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{GoogleID: "g-1", Email: "priya@example.com", Name: "Priya"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not set timestamps")
	}
	if user.ThemePreference != model.ThemeSystem {
		t.Errorf("ThemePreference = %q, want %q", user.ThemePreference, model.ThemeSystem)
	}
}

func TestCreateUser_DuplicateGoogleID(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "g-dup", "First")

	err := db.CreateUser(context.Background(), &model.User{GoogleID: "g-dup", Name: "Second"})
	if err == nil {
		t.Fatal("CreateUser() should fail for a duplicate google_id")
	}
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "g-2", "Sam")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Name != "Sam" || found.GoogleID != "g-2" {
		t.Errorf("GetUserByID() = %+v", found)
	}
	if found.ActiveGroupID != nil {
		t.Errorf("ActiveGroupID = %v, want nil", *found.ActiveGroupID)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByGoogleID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "g-3", "Alex")

	found, err := db.GetUserByGoogleID(context.Background(), "g-3")
	if err != nil {
		t.Fatalf("GetUserByGoogleID() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = db.GetUserByGoogleID(context.Background(), "g-missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByGoogleID(missing) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateUserProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-4", "Old Name")

	user.Name = "New Name"
	user.AvatarURL = "https://example.com/new.png"
	user.Email = "ignored@example.com"
	if err := db.UpdateUserProfile(ctx, user); err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}

	found, _ := db.GetUserByID(ctx, user.ID)
	if found.Name != "New Name" || found.AvatarURL != "https://example.com/new.png" {
		t.Errorf("profile not updated: %+v", found)
	}
	if found.Email != "g-4@example.com" {
		t.Errorf("Email = %q, email is not a profile field", found.Email)
	}
}

func TestUpdateUserProfile_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUserProfile(context.Background(), &model.User{ID: "missing", Name: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUserProfile() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateThemePreference(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-5", "Theme")

	if err := db.UpdateThemePreference(ctx, user.ID, model.ThemeDark); err != nil {
		t.Fatalf("UpdateThemePreference() error = %v", err)
	}
	found, _ := db.GetUserByID(ctx, user.ID)
	if found.ThemePreference != model.ThemeDark {
		t.Errorf("ThemePreference = %q, want dark", found.ThemePreference)
	}
}

// =========================================================================
// ACTIVE GROUP TESTS
// =========================================================================

func TestSetActiveGroupIfUnset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-6", "Active")
	first := createTestGroup(t, db, user, "First", "code-1")
	second := createTestGroup(t, db, user, "Second", "code-2")

	if err := db.SetActiveGroupIfUnset(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("SetActiveGroupIfUnset() error = %v", err)
	}
	if err := db.SetActiveGroupIfUnset(ctx, user.ID, second.ID); err != nil {
		t.Fatalf("SetActiveGroupIfUnset() error = %v", err)
	}

	found, _ := db.GetUserByID(ctx, user.ID)
	if found.ActiveGroupID == nil || *found.ActiveGroupID != first.ID {
		t.Errorf("ActiveGroupID = %v, want %s (second call must not overwrite)", found.ActiveGroupID, first.ID)
	}
}

func TestClearActiveGroupIf(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-7", "Clear")
	g := createTestGroup(t, db, user, "Home", "code-3")
	other := createTestGroup(t, db, user, "Other", "code-4")

	if err := db.SetActiveGroup(ctx, user.ID, g.ID); err != nil {
		t.Fatalf("SetActiveGroup() error = %v", err)
	}

	cleared, err := db.ClearActiveGroupIf(ctx, user.ID, other.ID)
	if err != nil {
		t.Fatalf("ClearActiveGroupIf() error = %v", err)
	}
	if cleared {
		t.Error("ClearActiveGroupIf() cleared a pointer to a different group")
	}

	cleared, err = db.ClearActiveGroupIf(ctx, user.ID, g.ID)
	if err != nil {
		t.Fatalf("ClearActiveGroupIf() error = %v", err)
	}
	if !cleared {
		t.Error("ClearActiveGroupIf() = false, want true")
	}

	found, _ := db.GetUserByID(ctx, user.ID)
	if found.ActiveGroupID != nil {
		t.Errorf("ActiveGroupID = %v, want nil", *found.ActiveGroupID)
	}
}
