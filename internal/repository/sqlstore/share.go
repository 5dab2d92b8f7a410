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

const shareLinkColumns = `id, menu_item_id, share_token, created_by, created_at, expires_at, view_count`

func scanShareLink(row interface{ Scan(...any) error }) (*model.ShareLink, error) {
	var l model.ShareLink
	err := row.Scan(&l.ID, &l.MenuItemID, &l.Token, &l.CreatedBy, &l.CreatedAt, &l.ExpiresAt, &l.ViewCount)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateShareLink stores a link. The caller supplies the token and expiry.
func (db *DB) CreateShareLink(ctx context.Context, link *model.ShareLink) error {
	link.ID = xid.New().String()
	link.CreatedAt = db.timestamp()

	_, err := db.exec(ctx,
		`INSERT INTO shared_links (`+shareLinkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.ID, link.MenuItemID, link.Token, link.CreatedBy, link.CreatedAt, link.ExpiresAt, link.ViewCount,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting share link: %w", err)
	}
	return nil
}

// GetShareLinkByToken does not filter on expiry; the service decides.
func (db *DB) GetShareLinkByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	l, err := scanShareLink(db.queryRow(ctx,
		`SELECT `+shareLinkColumns+` FROM shared_links WHERE share_token = ?`, token,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Shared link not found or expired")
		}
		return nil, fmt.Errorf("sqlstore: getting share link by token: %w", err)
	}
	return l, nil
}

// GetShareLink loads a link by id.
func (db *DB) GetShareLink(ctx context.Context, id string) (*model.ShareLink, error) {
	l, err := scanShareLink(db.queryRow(ctx,
		`SELECT `+shareLinkColumns+` FROM shared_links WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("share link", id)
		}
		return nil, fmt.Errorf("sqlstore: getting share link %s: %w", id, err)
	}
	return l, nil
}

// IncrementShareViews adds one to the link's view count.
func (db *DB) IncrementShareViews(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx,
		`UPDATE shared_links SET view_count = view_count + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: incrementing views on %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("share link", id)
	}
	return nil
}

// ListShareLinks returns the item's links, newest first.
func (db *DB) ListShareLinks(ctx context.Context, itemID string) ([]model.ShareLink, error) {
	rows, err := db.query(ctx,
		`SELECT `+shareLinkColumns+` FROM shared_links
		 WHERE menu_item_id = ?
		 ORDER BY created_at DESC, id DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing share links: %w", err)
	}
	defer rows.Close()

	links := []model.ShareLink{}
	for rows.Next() {
		l, err := scanShareLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning share link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// DeleteShareLink deletes a link by id.
func (db *DB) DeleteShareLink(ctx context.Context, id string) error {
	ok, err := db.execAffecting(ctx, `DELETE FROM shared_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting share link %s: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("share link", id)
	}
	return nil
}
