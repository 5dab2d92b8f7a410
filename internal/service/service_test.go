package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
	"github.com/sakif/menu-planner/internal/repository/sqlstore"
)

// =========================================================================
// TEST STACK
// =========================================================================

// newTestStore returns an in-memory SQLite store; every test gets its own.
func newTestStore(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T, store repository.Store) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	return NewAuthService(store, tokens, newTestLogger())
}

// signIn runs the identity resolver for a fresh Google profile.
func signIn(t *testing.T, store repository.Store, googleID, name string) *model.User {
	t.Helper()
	res, err := newTestAuthService(t, store).LoginWithGoogle(context.Background(), &auth.GoogleUser{
		ID:    googleID,
		Email: googleID + "@example.com",
		Name:  name,
	})
	require.NoError(t, err)
	return res.User
}

// createBareUser inserts a user without any group, the shape of accounts
// created before groups existed.
func createBareUser(t *testing.T, store repository.Store, googleID, name string) *model.User {
	t.Helper()
	u := &model.User{GoogleID: googleID, Email: googleID + "@example.com", Name: name}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func activeGroupID(t *testing.T, store repository.Store, userID string) *string {
	t.Helper()
	u, err := store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	return u.ActiveGroupID
}

// codes returns a generator that yields cs in order and then repeats the last.
func codes(cs ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := cs[min(i, len(cs)-1)]
		i++
		return c, nil
	}
}

// =========================================================================
// FAILURE INJECTION
// =========================================================================

var errInjected = errors.New("injected store failure")

// failingStore wraps a real store and fails the named methods. Transactions
// hand the closure a wrapped tx so injected failures apply inside them too.
type failingStore struct {
	repository.Store
	fail map[string]bool
}

func newFailingStore(store repository.Store, methods ...string) *failingStore {
	f := &failingStore{Store: store, fail: map[string]bool{}}
	for _, m := range methods {
		f.fail[m] = true
	}
	return f
}

func (f *failingStore) check(method string) error {
	if f.fail[method] {
		return errInjected
	}
	return nil
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx, fail: f.fail})
	})
}

func (f *failingStore) AddMember(ctx context.Context, m *model.Membership) error {
	if err := f.check("AddMember"); err != nil {
		return err
	}
	return f.Store.AddMember(ctx, m)
}

func (f *failingStore) SetActiveGroup(ctx context.Context, userID, groupID string) error {
	if err := f.check("SetActiveGroup"); err != nil {
		return err
	}
	return f.Store.SetActiveGroup(ctx, userID, groupID)
}

func (f *failingStore) SetActiveGroupIfUnset(ctx context.Context, userID, groupID string) error {
	if err := f.check("SetActiveGroupIfUnset"); err != nil {
		return err
	}
	return f.Store.SetActiveGroupIfUnset(ctx, userID, groupID)
}

func (f *failingStore) ClearActiveGroupIf(ctx context.Context, userID, groupID string) (bool, error) {
	if err := f.check("ClearActiveGroupIf"); err != nil {
		return false, err
	}
	return f.Store.ClearActiveGroupIf(ctx, userID, groupID)
}

func (f *failingStore) UpdateInviteCode(ctx context.Context, groupID, code string) error {
	if err := f.check("UpdateInviteCode"); err != nil {
		return err
	}
	return f.Store.UpdateInviteCode(ctx, groupID, code)
}

func (f *failingStore) ReplaceTags(ctx context.Context, itemID string, tags []string) error {
	if err := f.check("ReplaceTags"); err != nil {
		return err
	}
	return f.Store.ReplaceTags(ctx, itemID, tags)
}

func (f *failingStore) AddShoppingListItem(ctx context.Context, item *model.ShoppingListItem) error {
	if err := f.check("AddShoppingListItem"); err != nil {
		return err
	}
	return f.Store.AddShoppingListItem(ctx, item)
}
