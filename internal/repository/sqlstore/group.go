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

// CreateGroup inserts a group row. The caller supplies the invite code;
// ID and CreatedAt are filled in here.
func (db *DB) CreateGroup(ctx context.Context, group *model.Group) error {
	group.ID = xid.New().String()
	group.CreatedAt = db.timestamp()

	_, err := db.exec(ctx,
		`INSERT INTO menu_groups (id, name, invite_code, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.InviteCode, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting group: %w", err)
	}
	return nil
}

// GetGroupByID loads a group without caller-relative fields.
func (db *DB) GetGroupByID(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := db.queryRow(ctx,
		`SELECT id, name, invite_code, created_by, created_at FROM menu_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.InviteCode, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("group", id)
		}
		return nil, fmt.Errorf("sqlstore: getting group %s: %w", id, err)
	}
	return &g, nil
}

// GetGroupByInviteCode resolves a code; unknown codes are NotFound.
func (db *DB) GetGroupByInviteCode(ctx context.Context, code string) (*model.Group, error) {
	var g model.Group
	err := db.queryRow(ctx,
		`SELECT id, name, invite_code, created_by, created_at FROM menu_groups WHERE invite_code = ?`, code,
	).Scan(&g.ID, &g.Name, &g.InviteCode, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Invalid invite code")
		}
		return nil, fmt.Errorf("sqlstore: getting group by invite code: %w", err)
	}
	return &g, nil
}

// InviteCodeExists reports whether any group uses code.
func (db *DB) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := db.queryRow(ctx, `SELECT COUNT(*) FROM menu_groups WHERE invite_code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking invite code: %w", err)
	}
	return n > 0, nil
}

// UpdateInviteCode replaces the group's code.
func (db *DB) UpdateInviteCode(ctx context.Context, groupID, code string) error {
	ok, err := db.execAffecting(ctx,
		`UPDATE menu_groups SET invite_code = ? WHERE id = ?`, code, groupID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating invite code for group %s: %w", groupID, err)
	}
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	return nil
}

// =========================================================================
// MEMBERSHIPS
// =========================================================================

// AddMember inserts a membership. JoinedAt is set here when zero.
// A duplicate (group, user) pair fails on the primary key.
func (db *DB) AddMember(ctx context.Context, m *model.Membership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = db.timestamp()
	}

	_, err := db.exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		m.GroupID, m.UserID, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: adding %s to group %s: %w", m.UserID, m.GroupID, err)
	}
	return nil
}

// RemoveMember deletes the membership and reports whether one existed.
func (db *DB) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	removed, err := db.execAffecting(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlstore: removing %s from group %s: %w", userID, groupID, err)
	}
	return removed, nil
}

// GetMembership loads the (group, user) membership.
func (db *DB) GetMembership(ctx context.Context, groupID, userID string) (*model.Membership, error) {
	m, err := scanMembership(db.queryRow(ctx,
		`SELECT group_id, user_id, role, joined_at FROM group_members
		 WHERE group_id = ? AND user_id = ?`, groupID, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("membership", groupID)
		}
		return nil, fmt.Errorf("sqlstore: getting membership: %w", err)
	}
	return m, nil
}

// FirstMembership returns the user's earliest membership.
func (db *DB) FirstMembership(ctx context.Context, userID string) (*model.Membership, error) {
	m, err := scanMembership(db.queryRow(ctx,
		`SELECT group_id, user_id, role, joined_at FROM group_members
		 WHERE user_id = ?
		 ORDER BY joined_at, group_id
		 LIMIT 1`, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("membership", userID)
		}
		return nil, fmt.Errorf("sqlstore: getting first membership: %w", err)
	}
	return m, nil
}

func scanMembership(row *sql.Row) (*model.Membership, error) {
	var m model.Membership
	var role string
	if err := row.Scan(&m.GroupID, &m.UserID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}

// =========================================================================
// READ MODELS
// =========================================================================

const groupWithRoleColumns = `g.id, g.name, g.invite_code, g.created_by, g.created_at, gm.role,
	(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id) AS member_count`

func scanGroupWithRole(row interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	var role string
	if err := row.Scan(&g.ID, &g.Name, &g.InviteCode, &g.CreatedBy, &g.CreatedAt, &role, &g.MemberCount); err != nil {
		return nil, err
	}
	g.Role = model.Role(role)
	return &g, nil
}

// ListGroupsForUser returns the user's groups with role and member count.
func (db *DB) ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error) {
	rows, err := db.query(ctx,
		`SELECT `+groupWithRoleColumns+`
		 FROM menu_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY g.created_at, g.id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing groups for %s: %w", userID, err)
	}
	defer rows.Close()

	groups := []model.Group{}
	for rows.Next() {
		g, err := scanGroupWithRole(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating groups: %w", err)
	}
	return groups, nil
}

// GetGroupForUser loads one group with the user's role and the member
// count; NotFound when the user is not a member.
func (db *DB) GetGroupForUser(ctx context.Context, groupID, userID string) (*model.Group, error) {
	g, err := scanGroupWithRole(db.queryRow(ctx,
		`SELECT `+groupWithRoleColumns+`
		 FROM menu_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE g.id = ? AND gm.user_id = ?`, groupID, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("group", groupID)
		}
		return nil, fmt.Errorf("sqlstore: getting group %s for %s: %w", groupID, userID, err)
	}
	return g, nil
}

// GetActiveGroup joins through group_members, so a pointer to a group the
// user no longer belongs to resolves to NotFound rather than leaking the group.
func (db *DB) GetActiveGroup(ctx context.Context, userID string) (*model.Group, error) {
	g, err := scanGroupWithRole(db.queryRow(ctx,
		`SELECT `+groupWithRoleColumns+`
		 FROM users u
		 JOIN menu_groups g ON g.id = u.active_group_id
		 JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = u.id
		 WHERE u.id = ?`, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("active group for user", userID)
		}
		return nil, fmt.Errorf("sqlstore: getting active group for %s: %w", userID, err)
	}
	return g, nil
}

// ListMembers returns the group's members, owners first.
func (db *DB) ListMembers(ctx context.Context, groupID string) ([]model.Member, error) {
	rows, err := db.query(ctx,
		`SELECT u.id, u.name, u.email, u.avatar_url, gm.role, gm.joined_at
		 FROM group_members gm
		 JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ?
		 ORDER BY CASE gm.role WHEN 'owner' THEN 0 ELSE 1 END, gm.joined_at, u.id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing members of %s: %w", groupID, err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		var role string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.AvatarURL, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning member: %w", err)
		}
		m.Role = model.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating members: %w", err)
	}
	return members, nil
}
