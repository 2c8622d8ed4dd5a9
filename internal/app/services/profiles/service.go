// Package profiles manages the account -> profile token pointer.
package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// ErrNotOwner is returned when a caller selects a token someone else owns.
var ErrNotOwner = errors.New("NFT should be owned by you")

// Service validates ownership against the token store before moving the
// profile pointer.
type Service struct {
	tokens storage.TokenStore
	store  storage.ProfileStore
	log    *logger.Logger
}

// New constructs a profile service.
func New(tokens storage.TokenStore, store storage.ProfileStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profiles")
	}
	return &Service{
		tokens: tokens,
		store:  store,
		log:    log,
	}
}

// Select points the caller's profile at tokenID. The caller must own the
// token; re-selecting the current profile is a no-op that still succeeds.
func (s *Service) Select(ctx context.Context, caller string, tokenID uint64) error {
	caller = strings.TrimSpace(caller)

	tok, err := s.tokens.GetToken(ctx, tokenID)
	if err != nil {
		return err
	}
	if tok.Owner != caller {
		return ErrNotOwner
	}

	if err := s.store.SetProfile(ctx, caller, tokenID); err != nil {
		return err
	}
	s.log.WithField("owner", caller).
		WithField("token_id", tokenID).
		Info("profile selected")
	return nil
}

// ProfileOf returns the selected token id, or 0 for accounts that never
// minted or selected one.
func (s *Service) ProfileOf(ctx context.Context, owner string) (uint64, error) {
	return s.store.GetProfile(ctx, strings.TrimSpace(owner))
}
