package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

const maxGroupNameLength = 100

// GroupService owns group membership, invite codes and each user's active
// group pointer. It is the only writer of those three.
type GroupService struct {
	store   repository.Store
	logger  *slog.Logger
	newCode func() (string, error)
}

// NewGroupService creates a GroupService backed by store.
func NewGroupService(store repository.Store, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:   store,
		logger:  logger,
		newCode: generateInviteCode,
	}
}

// CreateGroup creates a group owned by userID. It becomes the user's active
// group only if they have none.
func (s *GroupService) CreateGroup(ctx context.Context, userID, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Group name is required")
	}
	if utf8.RuneCountInString(name) > maxGroupNameLength {
		return nil, apperror.ValidationFailed("name", fmt.Sprintf("Group name must be at most %d characters", maxGroupNameLength))
	}

	var group *model.Group
	err := runTx(ctx, s.store, s.logger, "create group", func(tx repository.Store) error {
		var err error
		group, err = createGroupWithOwner(ctx, tx, name, userID, s.newCode)
		if err != nil {
			return err
		}
		return tx.SetActiveGroupIfUnset(ctx, userID, group.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("group created",
		slog.String("groupID", group.ID),
		slog.String("userID", userID),
		slog.String("name", group.Name),
	)
	return group, nil
}

// ListGroups returns every group userID belongs to, with the caller's role
// and the current member count.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]model.Group, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/group: listing groups: %w", err)
	}
	return groups, nil
}

// GetActiveGroup returns (nil, nil) when the user has no active group.
func (s *GroupService) GetActiveGroup(ctx context.Context, userID string) (*model.Group, error) {
	group, err := s.store.GetActiveGroup(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/group: getting active group: %w", err)
	}
	return group, nil
}

// SwitchActiveGroup points the user at groupID. Only members may switch to a
// group; the check and the write are not revalidated against a concurrent
// removal.
func (s *GroupService) SwitchActiveGroup(ctx context.Context, userID, groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return apperror.ValidationFailed("group_id", "group_id is required")
	}
	if _, err := s.requireMembership(ctx, s.store, groupID, userID); err != nil {
		return err
	}
	if err := s.store.SetActiveGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("service/group: switching active group: %w", err)
	}

	s.logger.Info("active group switched",
		slog.String("userID", userID),
		slog.String("groupID", groupID),
	)
	return nil
}

// ListMembers lists the members of groupID, owners first. Only members of
// the group may list it.
func (s *GroupService) ListMembers(ctx context.Context, groupID, requesterID string) ([]model.Member, error) {
	if _, err := s.requireMembership(ctx, s.store, groupID, requesterID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("service/group: listing members: %w", err)
	}
	return members, nil
}

// RegenerateInviteCode replaces the group's code. The old code stops working
// immediately. Owners only.
func (s *GroupService) RegenerateInviteCode(ctx context.Context, groupID, requesterID string) (string, error) {
	var code string
	err := runTx(ctx, s.store, s.logger, "regenerate invite code", func(tx repository.Store) error {
		m, err := s.requireMembership(ctx, tx, groupID, requesterID)
		if err != nil {
			return err
		}
		if m.Role != model.RoleOwner {
			return apperror.Forbidden("Only group owners can regenerate invite codes")
		}

		code, err = uniqueInviteCode(ctx, tx, s.newCode)
		if err != nil {
			return err
		}
		return tx.UpdateInviteCode(ctx, groupID, code)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("invite code regenerated",
		slog.String("groupID", groupID),
		slog.String("userID", requesterID),
	)
	return code, nil
}

// JoinGroup adds userID to the group behind code as a member. Joining a group
// the user already belongs to is a no-op and reports joined=false.
func (s *GroupService) JoinGroup(ctx context.Context, userID, code string) (group *model.Group, joined bool, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, apperror.NotFoundMessage("Invalid invite code")
	}

	err = runTx(ctx, s.store, s.logger, "join group", func(tx repository.Store) error {
		group, err = tx.GetGroupByInviteCode(ctx, code)
		if err != nil {
			return err
		}

		_, err = tx.GetMembership(ctx, group.ID, userID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			if err := tx.AddMember(ctx, &model.Membership{GroupID: group.ID, UserID: userID, Role: model.RoleMember}); err != nil {
				return err
			}
			if err := tx.SetActiveGroupIfUnset(ctx, userID, group.ID); err != nil {
				return err
			}
			joined = true
		case err != nil:
			return err
		}

		// Reload with the caller's role and the member count after the join.
		group, err = tx.GetGroupForUser(ctx, group.ID, userID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if joined {
		s.logger.Info("member joined group",
			slog.String("groupID", group.ID),
			slog.String("userID", userID),
		)
	}
	return group, joined, nil
}

// RemoveMember deletes targetID's membership. Members may remove themselves;
// owners may remove anyone. If the group was the target's active group the
// pointer is cleared in the same unit of work. Removing someone who is not a
// member succeeds without changes.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, targetID, requesterID string) error {
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(targetID) == "" {
		return apperror.ValidationFailed("memberId", "group and member ids are required")
	}

	var removed bool
	err := runTx(ctx, s.store, s.logger, "remove member", func(tx repository.Store) error {
		if targetID != requesterID {
			m, err := s.requireMembership(ctx, tx, groupID, requesterID)
			if err != nil {
				return err
			}
			if m.Role != model.RoleOwner {
				return apperror.Forbidden("Only group owners can remove other members")
			}
		}

		var err error
		removed, err = tx.RemoveMember(ctx, groupID, targetID)
		if err != nil || !removed {
			return err
		}
		_, err = tx.ClearActiveGroupIf(ctx, targetID, groupID)
		return err
	})
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.logger.Info("member removed",
		slog.String("groupID", groupID),
		slog.String("userID", targetID),
		slog.String("removedBy", requesterID),
	)
	return nil
}

// requireMembership turns a missing membership into Forbidden. A group that
// does not exist looks the same as one the user is not in.
func (s *GroupService) requireMembership(ctx context.Context, groups repository.GroupRepository, groupID, userID string) (*model.Membership, error) {
	m, err := groups.GetMembership(ctx, groupID, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Forbidden("You are not a member of this group")
	}
	if err != nil {
		return nil, fmt.Errorf("service/group: checking membership: %w", err)
	}
	return m, nil
}
