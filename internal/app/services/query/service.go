// Package query serves read-only projections over the token and post ledgers.
// Every call is a fresh snapshot; nothing here mutates state.
package query

import (
	"context"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// Totals is a point-in-time summary of the ledger.
type Totals struct {
	Tokens    uint64 `json:"tokens"`
	Posts     uint64 `json:"posts"`
	TipVolume int64  `json:"tip_volume"`
}

// Service scans the stores on every call. Scale is small enough that
// recomputing beats caching; callers needing pagination are out of scope.
type Service struct {
	tokens  storage.TokenStore
	posts   storage.PostStore
	fetcher MetadataFetcher
	log     *logger.Logger
}

// New constructs a query service.
func New(tokens storage.TokenStore, posts storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("query")
	}
	return &Service{
		tokens: tokens,
		posts:  posts,
		log:    log,
	}
}

// WithFetcher enables token metadata enrichment.
func (s *Service) WithFetcher(fetcher MetadataFetcher) *Service {
	s.fetcher = fetcher
	return s
}

// AllPosts returns every post in ascending id order.
func (s *Service) AllPosts(ctx context.Context) ([]post.Post, error) {
	return s.posts.ListPosts(ctx)
}

// TokensOf returns the tokens owned by an account, in mint order.
func (s *Service) TokensOf(ctx context.Context, owner string) ([]token.Token, error) {
	return s.tokens.ListTokensByOwner(ctx, strings.TrimSpace(owner))
}

// Totals sums the ledger counters and the accumulated tip volume.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	tokenCount, err := s.tokens.CountTokens(ctx)
	if err != nil {
		return Totals{}, err
	}
	allPosts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return Totals{}, err
	}

	var volume int64
	for _, p := range allPosts {
		volume += p.TipAmount
	}
	return Totals{
		Tokens:    tokenCount,
		Posts:     uint64(len(allPosts)),
		TipVolume: volume,
	}, nil
}

// TokenMetadata resolves the document behind a token's metadata reference.
// Returns ErrNoFetcher when enrichment is not configured.
func (s *Service) TokenMetadata(ctx context.Context, tokenID uint64) (Metadata, error) {
	if s.fetcher == nil {
		return Metadata{}, ErrNoFetcher
	}
	tok, err := s.tokens.GetToken(ctx, tokenID)
	if err != nil {
		return Metadata{}, err
	}
	return s.fetcher.Fetch(ctx, tok.MetadataRef)
}
