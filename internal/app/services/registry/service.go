// Package registry manages the token ledger: minting, ownership lookups and
// balances.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/metrics"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// Service assigns sequential token ids and keeps the profile pointer in step
// with the newest mint.
type Service struct {
	tokens   storage.TokenStore
	profiles storage.ProfileStore
	log      *logger.Logger
}

// New constructs a registry service.
func New(tokens storage.TokenStore, profiles storage.ProfileStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{
		tokens:   tokens,
		profiles: profiles,
		log:      log,
	}
}

// Mint creates a token owned by owner and points the owner's profile at it,
// unconditionally overwriting any earlier selection. The metadata reference
// is stored as-is; an empty reference is accepted.
func (s *Service) Mint(ctx context.Context, owner, metadataRef string) (token.Token, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return token.Token{}, fmt.Errorf("owner is required")
	}

	tok, err := s.tokens.CreateToken(ctx, token.Token{
		Owner:       owner,
		MetadataRef: metadataRef,
	})
	if err != nil {
		return token.Token{}, err
	}

	// The profile always follows the most recent mint.
	if err := s.profiles.SetProfile(ctx, owner, tok.ID); err != nil {
		return token.Token{}, fmt.Errorf("set profile after mint: %w", err)
	}

	metrics.RecordMint()
	s.log.WithField("token_id", tok.ID).
		WithField("owner", owner).
		Info("token minted")
	return tok, nil
}

// OwnerOf returns the owner of a token.
func (s *Service) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	tok, err := s.tokens.GetToken(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return tok.Owner, nil
}

// BalanceOf returns how many tokens an account holds.
func (s *Service) BalanceOf(ctx context.Context, owner string) (int, error) {
	return s.tokens.CountTokensByOwner(ctx, strings.TrimSpace(owner))
}

// Get retrieves a full token record.
func (s *Service) Get(ctx context.Context, tokenID uint64) (token.Token, error) {
	return s.tokens.GetToken(ctx, tokenID)
}

// Count returns the id of the most recently minted token.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.tokens.CountTokens(ctx)
}
