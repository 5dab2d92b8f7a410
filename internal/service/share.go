package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository"
)

const (
	shareTokenBytes  = 12 // 16 URL-safe characters
	maxShareLifetime = 365
)

// ShareService issues public links to single menu items. Links may expire
// and count their views; resolving one needs no session.
type ShareService struct {
	store     repository.Store
	logger    *slog.Logger
	clientURL string
	newToken  func() (string, error)
	now       func() time.Time
}

// NewShareService builds share URLs as <clientURL>/shared/<token>.
func NewShareService(store repository.Store, clientURL string, logger *slog.Logger) *ShareService {
	return &ShareService{
		store:     store,
		logger:    logger,
		clientURL: strings.TrimRight(clientURL, "/"),
		newToken:  func() (string, error) { return randomToken(shareTokenBytes) },
		now:       time.Now,
	}
}

// Create issues a link for an item the caller can see. expiresInDays is
// optional; without it the link never expires.
func (s *ShareService) Create(ctx context.Context, userID, itemID string, expiresInDays *int) (*model.ShareLink, error) {
	if expiresInDays != nil && (*expiresInDays < 1 || *expiresInDays > maxShareLifetime) {
		return nil, apperror.ValidationFailed("expiresInDays", fmt.Sprintf("expiresInDays must be between 1 and %d", maxShareLifetime))
	}
	if _, err := visibleMenuItem(ctx, s.store, userID, itemID); err != nil {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}
	link := &model.ShareLink{MenuItemID: itemID, Token: token, CreatedBy: &userID}
	if expiresInDays != nil {
		expires := s.now().UTC().AddDate(0, 0, *expiresInDays).Truncate(time.Microsecond)
		link.ExpiresAt = &expires
	}

	if err := s.store.CreateShareLink(ctx, link); err != nil {
		return nil, fmt.Errorf("service/share: creating link: %w", err)
	}
	link.ShareURL = s.shareURL(link.Token)

	s.logger.Info("share link created",
		slog.String("itemID", itemID),
		slog.String("userID", userID),
	)
	return link, nil
}

// Resolve returns the shared item and counts the view. Unknown and expired
// tokens are both NotFound. Reviewer ids are stripped from the public copy.
func (s *ShareService) Resolve(ctx context.Context, token string) (*model.MenuItem, error) {
	notFound := apperror.NotFoundMessage("Shared link not found or expired")
	if strings.TrimSpace(token) == "" {
		return nil, notFound
	}

	link, err := s.store.GetShareLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("service/share: resolving token: %w", err)
	}
	if link.Expired(s.now()) {
		return nil, notFound
	}

	if err := s.store.IncrementShareViews(ctx, link.ID); err != nil {
		return nil, fmt.Errorf("service/share: counting view: %w", err)
	}

	item, err := s.store.GetMenuItem(ctx, link.MenuItemID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("service/share: loading item: %w", err)
	}
	if err := loadItemDetail(ctx, s.store, item); err != nil {
		return nil, err
	}
	for i := range item.Reviews {
		item.Reviews[i].UserID = ""
	}
	return item, nil
}

// List returns the share links of an item the caller can see, newest first.
func (s *ShareService) List(ctx context.Context, userID, itemID string) ([]model.ShareLink, error) {
	if _, err := visibleMenuItem(ctx, s.store, userID, itemID); err != nil {
		return nil, err
	}
	links, err := s.store.ListShareLinks(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("service/share: listing links: %w", err)
	}
	for i := range links {
		links[i].ShareURL = s.shareURL(links[i].Token)
	}
	return links, nil
}

// Delete revokes a link. Only its creator may do so.
func (s *ShareService) Delete(ctx context.Context, userID, shareID string) error {
	link, err := s.store.GetShareLink(ctx, shareID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("share link", shareID)
		}
		return fmt.Errorf("service/share: loading link: %w", err)
	}
	if link.CreatedBy == nil || *link.CreatedBy != userID {
		return apperror.NotFound("share link", shareID)
	}
	if err := s.store.DeleteShareLink(ctx, shareID); err != nil {
		return fmt.Errorf("service/share: deleting link: %w", err)
	}
	return nil
}

func (s *ShareService) shareURL(token string) string {
	return s.clientURL + "/shared/" + token
}
