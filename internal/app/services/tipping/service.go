// Package tipping forwards value from a caller to a post's author and keeps
// the post's accumulated tip total in step with the transfer.
package tipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/events"
	"github.com/PSM-Network/social_layer/internal/app/metrics"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

var (
	// ErrInvalidPostID rejects tips to ids outside [1, postCount].
	ErrInvalidPostID = errors.New("ID is not valid")

	// ErrSelfTip rejects authors tipping their own posts.
	ErrSelfTip = errors.New("You can not give tip to your post")
)

// Service performs the tip transfer. The wallet debit, wallet credit and tip
// increment commit as one unit inside the store; a failed transfer leaves no
// trace.
type Service struct {
	posts  storage.PostStore
	events events.Log
	log    *logger.Logger
}

// New constructs a tipping service.
func New(posts storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tipping")
	}
	return &Service{
		posts:  posts,
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

// Tip forwards amount from tipper to the author of postID and increments the
// post's tip total by the same amount. A zero amount is permitted and moves
// nothing but still counts as a tip.
func (s *Service) Tip(ctx context.Context, tipper string, postID uint64, amount int64) (post.Post, error) {
	tipper = strings.TrimSpace(tipper)
	if amount < 0 {
		return post.Post{}, fmt.Errorf("tip amount can not be negative")
	}

	count, err := s.posts.CountPosts(ctx)
	if err != nil {
		return post.Post{}, err
	}
	if postID == 0 || postID > count {
		return post.Post{}, ErrInvalidPostID
	}

	target, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if target.Author == tipper {
		return post.Post{}, ErrSelfTip
	}

	updated, err := s.posts.RecordTip(ctx, postID, tipper, amount)
	if err != nil {
		return post.Post{}, err
	}

	s.events.Emit(events.PostTipped(updated.ID, updated.ContentHash, updated.TipAmount, updated.Author))
	metrics.RecordTip(amount)
	s.log.WithField("post_id", postID).
		WithField("tipper", tipper).
		WithField("amount", amount).
		Info("post tipped")
	return updated, nil
}
