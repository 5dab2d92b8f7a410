package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/model"
)

// =========================================================================
// FIRST LOGIN
// =========================================================================

func TestLoginWithGoogle_NewUserGetsDefaultGroup(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	ctx := context.Background()

	res, err := svc.LoginWithGoogle(ctx, &auth.GoogleUser{
		ID:      "g-priya",
		Email:   "priya@example.com",
		Name:    "Priya",
		Picture: "https://img.example.com/priya.png",
	})
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	if res.Token == "" {
		t.Fatal("LoginWithGoogle() returned an empty token")
	}
	if id, err := svc.ValidateToken(res.Token); err != nil || id != res.User.ID {
		t.Errorf("ValidateToken() = %q, %v; want %q", id, err, res.User.ID)
	}

	groups, err := store.ListGroupsForUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("ListGroupsForUser() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want exactly 1", len(groups))
	}
	g := groups[0]
	if g.Name != "Priya's Menu" || g.Role != model.RoleOwner || g.MemberCount != 1 {
		t.Errorf("default group = %+v", g)
	}

	active := activeGroupID(t, store, res.User.ID)
	if active == nil || *active != g.ID {
		t.Errorf("active_group_id = %v, want %s", active, g.ID)
	}
	if res.User.ActiveGroupID == nil || *res.User.ActiveGroupID != g.ID {
		t.Errorf("returned user ActiveGroupID = %v, want %s", res.User.ActiveGroupID, g.ID)
	}
}

func TestDefaultGroupName(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Priya", "priya@example.com", "Priya's Menu"},
		{"  ", "sam@example.com", "sam@example.com's Menu"},
		{"", "", "My Menu"},
	}
	for _, tt := range tests {
		got := defaultGroupName(&model.User{Name: tt.name, Email: tt.email})
		if got != tt.want {
			t.Errorf("defaultGroupName(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}

// =========================================================================
// RETURNING USERS
// =========================================================================

func TestLoginWithGoogle_ReturningUserUpdatesProfileOnly(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	ctx := context.Background()

	first, _ := svc.LoginWithGoogle(ctx, &auth.GoogleUser{ID: "g-1", Email: "a@example.com", Name: "Ann"})
	second, err := svc.LoginWithGoogle(ctx, &auth.GoogleUser{
		ID: "g-1", Email: "changed@example.com", Name: "Ann B", Picture: "https://img/new.png",
	})
	if err != nil {
		t.Fatalf("second LoginWithGoogle() error = %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("user id changed: %s -> %s", first.User.ID, second.User.ID)
	}
	stored, _ := store.GetUserByID(ctx, first.User.ID)
	if stored.Name != "Ann B" || stored.AvatarURL != "https://img/new.png" {
		t.Errorf("profile not refreshed: %+v", stored)
	}
	if stored.Email != "a@example.com" {
		t.Errorf("Email = %q, identity fields must not change", stored.Email)
	}

	groups, _ := store.ListGroupsForUser(ctx, first.User.ID)
	if len(groups) != 1 {
		t.Errorf("len(groups) = %d, a returning user must not get another group", len(groups))
	}
}

func TestLoginWithGoogle_MigrationCreatesGroupWhenNone(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	ctx := context.Background()
	legacy := createBareUser(t, store, "g-legacy", "Lee")

	res, err := svc.LoginWithGoogle(ctx, &auth.GoogleUser{ID: "g-legacy", Name: "Lee"})
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	groups, _ := store.ListGroupsForUser(ctx, legacy.ID)
	if len(groups) != 1 || groups[0].Name != "Lee's Menu" || groups[0].Role != model.RoleOwner {
		t.Fatalf("groups = %+v, want one owned default group", groups)
	}
	if res.User.ActiveGroupID == nil || *res.User.ActiveGroupID != groups[0].ID {
		t.Errorf("ActiveGroupID = %v, want %s", res.User.ActiveGroupID, groups[0].ID)
	}
}

func TestLoginWithGoogle_MigrationAdoptsExistingMembership(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	ctx := context.Background()

	owner := signIn(t, store, "g-owner", "Olga")
	legacy := createBareUser(t, store, "g-legacy", "Lee")
	if err := store.AddMember(ctx, &model.Membership{GroupID: *owner.ActiveGroupID, UserID: legacy.ID, Role: model.RoleMember}); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	if _, err := svc.LoginWithGoogle(ctx, &auth.GoogleUser{ID: "g-legacy", Name: "Lee"}); err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	active := activeGroupID(t, store, legacy.ID)
	if active == nil || *active != *owner.ActiveGroupID {
		t.Errorf("active_group_id = %v, want adopted %s", active, *owner.ActiveGroupID)
	}
	groups, _ := store.ListGroupsForUser(ctx, legacy.ID)
	if len(groups) != 1 {
		t.Errorf("len(groups) = %d, adopting must not create a group", len(groups))
	}
}

// =========================================================================
// FAILURES
// =========================================================================

func TestLoginWithGoogle_RollsBackOnStoreFailure(t *testing.T) {
	for _, method := range []string{"AddMember", "SetActiveGroup"} {
		t.Run(method, func(t *testing.T) {
			store := newTestStore(t)
			svc := newTestAuthService(t, newFailingStore(store, method))
			svc.newCode = codes("fixed-01")
			ctx := context.Background()

			_, err := svc.LoginWithGoogle(ctx, &auth.GoogleUser{ID: "g-new", Name: "Nia"})
			if !errors.Is(err, apperror.ErrTransaction) {
				t.Fatalf("LoginWithGoogle() error = %v, want ErrTransaction", err)
			}
			if !errors.Is(err, errInjected) {
				t.Errorf("cause not kept in the chain: %v", err)
			}

			if _, err := store.GetUserByGoogleID(ctx, "g-new"); !errors.Is(err, apperror.ErrNotFound) {
				t.Errorf("user row survived rollback: %v", err)
			}
			if taken, _ := store.InviteCodeExists(ctx, "fixed-01"); taken {
				t.Error("group row survived rollback")
			}
		})
	}
}

func TestLoginWithGoogle_RejectsEmptyProfile(t *testing.T) {
	svc := newTestAuthService(t, newTestStore(t))

	for _, p := range []*auth.GoogleUser{nil, {Email: "x@example.com"}} {
		if _, err := svc.LoginWithGoogle(context.Background(), p); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("LoginWithGoogle(%v) error = %v, want ErrValidation", p, err)
		}
	}
}

// =========================================================================
// PROFILE
// =========================================================================

func TestUpdateThemePreference(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	user := signIn(t, store, "g-1", "Ann")

	updated, err := svc.UpdateThemePreference(context.Background(), user.ID, model.ThemeDark)
	if err != nil {
		t.Fatalf("UpdateThemePreference() error = %v", err)
	}
	if updated.ThemePreference != model.ThemeDark {
		t.Errorf("ThemePreference = %q, want dark", updated.ThemePreference)
	}

	_, err = svc.UpdateThemePreference(context.Background(), user.ID, "neon")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateThemePreference(neon) error = %v, want ErrValidation", err)
	}
}

func TestGetUserByID(t *testing.T) {
	store := newTestStore(t)
	svc := newTestAuthService(t, store)
	user := signIn(t, store, "g-1", "Ann")

	got, err := svc.GetUserByID(context.Background(), user.ID)
	if err != nil || got.ID != user.ID {
		t.Errorf("GetUserByID() = %v, %v", got, err)
	}
	if _, err := svc.GetUserByID(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ValidateToken("garbage"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ValidateToken(garbage) error = %v, want ErrUnauthorized", err)
	}
}
