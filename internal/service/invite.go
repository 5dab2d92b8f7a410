package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

const (
	inviteCodeBytes       = 6 // 8 URL-safe characters
	maxInviteCodeAttempts = 5
)

var errInviteCodesExhausted = errors.New("service: no unused invite code after retries")

// generateInviteCode returns 6 random bytes encoded as unpadded base64url.
func generateInviteCode() (string, error) {
	return randomToken(inviteCodeBytes)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("service: reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// uniqueInviteCode draws codes until one is unused. The UNIQUE index on
// menu_groups.invite_code still guards against a concurrent writer.
func uniqueInviteCode(ctx context.Context, groups repository.GroupRepository, newCode func() (string, error)) (string, error) {
	for range maxInviteCodeAttempts {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		taken, err := groups.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errInviteCodesExhausted
}

// createGroupWithOwner inserts a group and the creator's owner membership.
// It must run inside a unit of work: the two rows are never observable apart.
func createGroupWithOwner(ctx context.Context, tx repository.Store, name, userID string, newCode func() (string, error)) (*model.Group, error) {
	code, err := uniqueInviteCode(ctx, tx, newCode)
	if err != nil {
		return nil, err
	}

	group := &model.Group{Name: name, InviteCode: code, CreatedBy: userID}
	if err := tx.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	if err := tx.AddMember(ctx, &model.Membership{GroupID: group.ID, UserID: userID, Role: model.RoleOwner}); err != nil {
		return nil, err
	}

	group.Role = model.RoleOwner
	group.MemberCount = 1
	return group, nil
}
