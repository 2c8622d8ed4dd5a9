// Package posts manages the content ledger. Uploads are gated on token
// ownership; records are append-only.
package posts

import (
	"context"
	"errors"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/events"
	"github.com/PSM-Network/social_layer/internal/app/metrics"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

var (
	// ErrNoToken rejects uploads from accounts holding no token.
	ErrNoToken = errors.New("Kindly create an NFT to post")

	// ErrEmptyHash rejects uploads without a content hash.
	ErrEmptyHash = errors.New("Hash of the post can not be empty")
)

// Service owns post records and emits creation notifications.
type Service struct {
	tokens storage.TokenStore
	store  storage.PostStore
	events events.Log
	log    *logger.Logger
}

// New constructs a post service.
func New(tokens storage.TokenStore, store storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("posts")
	}
	return &Service{
		tokens: tokens,
		store:  store,
		events: events.NoOpLog{},
		log:    log,
	}
}

// AttachEvents routes notifications through the given log. Call before
// serving traffic.
func (s *Service) AttachEvents(log events.Log) {
	if log != nil {
		s.events = log
	}
}

// Upload creates a post authored by author. The author must hold at least
// one token and the content hash must be non-empty.
func (s *Service) Upload(ctx context.Context, author, contentHash string) (post.Post, error) {
	author = strings.TrimSpace(author)

	balance, err := s.tokens.CountTokensByOwner(ctx, author)
	if err != nil {
		return post.Post{}, err
	}
	if balance == 0 {
		return post.Post{}, ErrNoToken
	}
	if contentHash == "" {
		return post.Post{}, ErrEmptyHash
	}

	p, err := s.store.CreatePost(ctx, post.Post{
		ContentHash: contentHash,
		Author:      author,
	})
	if err != nil {
		return post.Post{}, err
	}

	s.events.Emit(events.PostCreated(p.ID, p.ContentHash, p.Author))
	metrics.RecordPostUpload()
	s.log.WithField("post_id", p.ID).
		WithField("author", author).
		Info("post uploaded")
	return p, nil
}

// Get retrieves a post record.
func (s *Service) Get(ctx context.Context, postID uint64) (post.Post, error) {
	return s.store.GetPost(ctx, postID)
}

// Count returns the id of the most recently created post.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.store.CountPosts(ctx)
}
