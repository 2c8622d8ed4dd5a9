package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/domain/wallet"
	"github.com/PSM-Network/social_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and single-node
// deployments. A single mutex guards every entity, so each mutation commits
// as one indivisible unit.
type Store struct {
	mu        sync.RWMutex
	tokens    []token.Token // index == id-1, ids are dense from 1
	posts     []post.Post   // same layout as tokens
	profiles  map[string]uint64
	wallets   map[string]wallet.Account
	transfers []wallet.Transfer
}

var _ storage.TokenStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles: make(map[string]uint64),
		wallets:  make(map[string]wallet.Account),
	}
}

// TokenStore implementation --------------------------------------------------

func (s *Store) CreateToken(_ context.Context, tok token.Token) (token.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok.ID = uint64(len(s.tokens)) + 1
	if tok.MintedAt.IsZero() {
		tok.MintedAt = time.Now().UTC()
	}
	s.tokens = append(s.tokens, tok)
	return tok, nil
}

func (s *Store) GetToken(_ context.Context, id uint64) (token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 || id > uint64(len(s.tokens)) {
		return token.Token{}, fmt.Errorf("token %d: %w", id, storage.ErrNotFound)
	}
	return s.tokens[id-1], nil
}

func (s *Store) ListTokensByOwner(_ context.Context, owner string) ([]token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]token.Token, 0)
	for _, tok := range s.tokens {
		if tok.Owner == owner {
			result = append(result, tok)
		}
	}
	return result, nil
}

func (s *Store) CountTokens(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.tokens)), nil
}

func (s *Store) CountTokensByOwner(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, tok := range s.tokens {
		if tok.Owner == owner {
			count++
		}
	}
	return count, nil
}

// ProfileStore implementation ------------------------------------------------

func (s *Store) SetProfile(_ context.Context, owner string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[owner] = tokenID
	return nil
}

func (s *Store) GetProfile(_ context.Context, owner string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profiles[owner], nil
}

// PostStore implementation ---------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uint64(len(s.posts)) + 1
	p.TipAmount = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.posts = append(s.posts, p)
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id uint64) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 || id > uint64(len(s.posts)) {
		return post.Post{}, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return s.posts[id-1], nil
}

func (s *Store) ListPosts(_ context.Context) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]post.Post(nil), s.posts...), nil
}

func (s *Store) CountPosts(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.posts)), nil
}

func (s *Store) RecordTip(_ context.Context, postID uint64, tipper string, amount int64) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if postID == 0 || postID > uint64(len(s.posts)) {
		return post.Post{}, fmt.Errorf("post %d: %w", postID, storage.ErrNotFound)
	}
	p := s.posts[postID-1]

	from := s.wallets[tipper]
	if from.Balance < amount {
		return post.Post{}, fmt.Errorf("wallet %s holds %d, tip needs %d: %w",
			tipper, from.Balance, amount, storage.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	from.Address = tipper
	from.Balance -= amount
	from.UpdatedAt = now

	to := s.wallets[p.Author]
	to.Address = p.Author
	to.Balance += amount
	to.UpdatedAt = now

	s.wallets[tipper] = from
	s.wallets[p.Author] = to

	p.TipAmount += amount
	s.posts[postID-1] = p

	s.transfers = append(s.transfers, wallet.Transfer{
		ID:        uuid.NewString(),
		Kind:      wallet.KindTip,
		From:      tipper,
		To:        p.Author,
		PostID:    postID,
		Amount:    amount,
		CreatedAt: now,
	})
	return p, nil
}

// WalletStore implementation -------------------------------------------------

func (s *Store) Credit(_ context.Context, address string, amount int64) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	acct := s.wallets[address]
	acct.Address = address
	acct.Balance += amount
	acct.UpdatedAt = now
	s.wallets[address] = acct

	s.transfers = append(s.transfers, wallet.Transfer{
		ID:        uuid.NewString(),
		Kind:      wallet.KindDeposit,
		To:        address,
		Amount:    amount,
		CreatedAt: now,
	})
	return acct, nil
}

func (s *Store) GetWallet(_ context.Context, address string) (wallet.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.wallets[address]
	if !ok {
		return wallet.Account{Address: address}, nil
	}
	return acct, nil
}

func (s *Store) ListTransfers(_ context.Context, address string) ([]wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]wallet.Transfer, 0)
	for _, tr := range s.transfers {
		if tr.From == address || tr.To == address {
			result = append(result, tr)
		}
	}
	return result, nil
}
