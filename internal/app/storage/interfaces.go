package storage

import (
	"context"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/domain/wallet"
)

// TokenStore persists token records. Token identifiers are assigned by the
// store: dense, sequential, starting at 1.
type TokenStore interface {
	CreateToken(ctx context.Context, tok token.Token) (token.Token, error)
	GetToken(ctx context.Context, id uint64) (token.Token, error)
	// ListTokensByOwner returns the owner's tokens in mint order.
	ListTokensByOwner(ctx context.Context, owner string) ([]token.Token, error)
	CountTokens(ctx context.Context) (uint64, error)
	CountTokensByOwner(ctx context.Context, owner string) (int, error)
}

// ProfileStore persists the owner -> selected token pointer.
type ProfileStore interface {
	SetProfile(ctx context.Context, owner string, tokenID uint64) error
	// GetProfile returns 0 for accounts that never set a profile.
	GetProfile(ctx context.Context, owner string) (uint64, error)
}

// PostStore persists post records. Post identifiers follow the same dense
// sequential assignment as tokens but on an independent counter.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id uint64) (post.Post, error)
	// ListPosts returns every post in ascending id order.
	ListPosts(ctx context.Context) ([]post.Post, error)
	CountPosts(ctx context.Context) (uint64, error)

	// RecordTip moves amount from the tipper's wallet to the post author's
	// wallet and increments the post's tip total, all-or-nothing. It returns
	// the updated post. ErrInsufficientFunds aborts with no mutation.
	RecordTip(ctx context.Context, postID uint64, tipper string, amount int64) (post.Post, error)
}

// WalletStore persists wallet balances and the transfer journal.
type WalletStore interface {
	Credit(ctx context.Context, address string, amount int64) (wallet.Account, error)
	GetWallet(ctx context.Context, address string) (wallet.Account, error)
	// ListTransfers returns journal entries where the address is either side,
	// oldest first.
	ListTransfers(ctx context.Context, address string) ([]wallet.Transfer, error)
}
