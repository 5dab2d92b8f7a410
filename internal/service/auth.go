// Package service holds the business rules. Services take a repository.Store,
// never a concrete database, and return apperror values that handlers map to
// HTTP statuses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

// AuthService resolves identity-provider profiles to users and issues
// session tokens.
type AuthService struct {
	store   repository.Store
	tokens  *auth.TokenService
	logger  *slog.Logger
	newCode func() (string, error)
}

// NewAuthService creates an AuthService that issues sessions with tokens.
func NewAuthService(store repository.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:   store,
		tokens:  tokens,
		logger:  logger,
		newCode: generateInviteCode,
	}
}

// AuthResult bundles the resolved user with a freshly signed token so the
// handler can set the cookie in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginWithGoogle maps a Google profile to a user.
//
//   - Unknown Google id: create the user, a default group with the user as
//     owner, and point active_group_id at it.
//   - Known user: refresh name and avatar only.
//   - Known user without an active group: adopt the earliest membership, or
//     create the default group when there is none.
//
// Every branch runs in one unit of work; a failed step leaves nothing behind.
func (s *AuthService) LoginWithGoogle(ctx context.Context, profile *auth.GoogleUser) (*AuthResult, error) {
	if profile == nil || profile.ID == "" {
		return nil, apperror.ValidationFailed("id", "identity profile has no id")
	}

	var user *model.User
	var created bool
	err := runTx(ctx, s.store, s.logger, "sign in", func(tx repository.Store) error {
		existing, err := tx.GetUserByGoogleID(ctx, profile.ID)
		switch {
		case err == nil:
			user = existing
			if name := strings.TrimSpace(profile.Name); name != "" {
				user.Name = name
			}
			user.AvatarURL = profile.Picture
			if err := tx.UpdateUserProfile(ctx, user); err != nil {
				return err
			}
			if user.HasActiveGroup() {
				return nil
			}
			return s.adoptOrCreateGroup(ctx, tx, user)

		case errors.Is(err, apperror.ErrNotFound):
			user = &model.User{
				GoogleID:  profile.ID,
				Email:     profile.Email,
				Name:      strings.TrimSpace(profile.Name),
				AvatarURL: profile.Picture,
			}
			if err := tx.CreateUser(ctx, user); err != nil {
				return err
			}
			created = true
			return s.createDefaultGroup(ctx, tx, user)

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("user registered",
			slog.String("userID", user.ID),
			slog.String("email", user.Email),
		)
	} else {
		s.logger.Info("user signed in", slog.String("userID", user.ID))
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// adoptOrCreateGroup handles users created before groups existed.
func (s *AuthService) adoptOrCreateGroup(ctx context.Context, tx repository.Store, user *model.User) error {
	m, err := tx.FirstMembership(ctx, user.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return s.createDefaultGroup(ctx, tx, user)
	}
	if err != nil {
		return err
	}

	if err := tx.SetActiveGroup(ctx, user.ID, m.GroupID); err != nil {
		return err
	}
	user.ActiveGroupID = &m.GroupID
	s.logger.Info("adopted existing group as active",
		slog.String("userID", user.ID),
		slog.String("groupID", m.GroupID),
	)
	return nil
}

func (s *AuthService) createDefaultGroup(ctx context.Context, tx repository.Store, user *model.User) error {
	group, err := createGroupWithOwner(ctx, tx, defaultGroupName(user), user.ID, s.newCode)
	if err != nil {
		return err
	}
	if err := tx.SetActiveGroup(ctx, user.ID, group.ID); err != nil {
		return err
	}
	user.ActiveGroupID = &group.ID
	s.logger.Info("default group created",
		slog.String("userID", user.ID),
		slog.String("groupID", group.ID),
		slog.String("name", group.Name),
	)
	return nil
}

// defaultGroupName is "<name>'s Menu", falling back to the email and then to
// a fixed name when the provider sent neither.
func defaultGroupName(user *model.User) string {
	owner := strings.TrimSpace(user.Name)
	if owner == "" {
		owner = strings.TrimSpace(user.Email)
	}
	if owner == "" {
		return "My Menu"
	}
	return owner + "'s Menu"
}

// GetUserByID loads the signed-in user for /auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// UpdateThemePreference stores light, dark or system and returns the user.
func (s *AuthService) UpdateThemePreference(ctx context.Context, userID, theme string) (*model.User, error) {
	if !model.ValidTheme(theme) {
		return nil, apperror.ValidationFailed("theme", "theme must be light, dark or system")
	}
	if err := s.store.UpdateThemePreference(ctx, userID, theme); err != nil {
		return nil, fmt.Errorf("service/auth: updating theme: %w", err)
	}
	return s.GetUserByID(ctx, userID)
}

// ValidateToken returns the user id a session token was issued for.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", apperror.Unauthorized("valid authentication required")
	}
	return userID, nil
}
