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

const userColumns = `id, google_id, email, name, avatar_url, theme_preference,
	active_group_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.AvatarURL, &u.ThemePreference,
		&u.ActiveGroupID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user, filling in ID and timestamps.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.timestamp()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ThemePreference == "" {
		user.ThemePreference = model.ThemeSystem
	}

	_, err := db.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GoogleID, user.Email, user.Name, user.AvatarURL, user.ThemePreference,
		user.ActiveGroupID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting user: %w", err)
	}
	return nil
}

// GetUserByID loads a user by id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByGoogleID loads a user by their Google account id.
func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", googleID)
		}
		return nil, fmt.Errorf("sqlstore: getting user by google id: %w", err)
	}
	return u, nil
}

// UpdateUserProfile refreshes the fields the identity provider owns.
// Identity and group state are left untouched.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = db.timestamp()

	ok, err := db.execAffecting(ctx,
		`UPDATE users SET name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.AvatarURL, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating user %s: %w", user.ID, err)
	}
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// UpdateThemePreference stores the user's UI theme.
func (db *DB) UpdateThemePreference(ctx context.Context, userID, theme string) error {
	ok, err := db.execAffecting(ctx,
		`UPDATE users SET theme_preference = ?, updated_at = ? WHERE id = ?`,
		theme, db.timestamp(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating theme for user %s: %w", userID, err)
	}
	if !ok {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// =========================================================================
// ACTIVE GROUP POINTER
// =========================================================================

// SetActiveGroup points the user at groupID unconditionally.
func (db *DB) SetActiveGroup(ctx context.Context, userID, groupID string) error {
	ok, err := db.execAffecting(ctx,
		`UPDATE users SET active_group_id = ? WHERE id = ?`, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: setting active group for user %s: %w", userID, err)
	}
	if !ok {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// SetActiveGroupIfUnset only writes when the user has no active group.
func (db *DB) SetActiveGroupIfUnset(ctx context.Context, userID, groupID string) error {
	_, err := db.exec(ctx,
		`UPDATE users SET active_group_id = ? WHERE id = ? AND active_group_id IS NULL`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: setting initial active group for user %s: %w", userID, err)
	}
	return nil
}

// ClearActiveGroupIf clears the pointer only when it names groupID and
// reports whether it did.
func (db *DB) ClearActiveGroupIf(ctx context.Context, userID, groupID string) (bool, error) {
	cleared, err := db.execAffecting(ctx,
		`UPDATE users SET active_group_id = NULL WHERE id = ? AND active_group_id = ?`,
		userID, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlstore: clearing active group for user %s: %w", userID, err)
	}
	return cleared, nil
}
