// Package postgres implements the storage interfaces on PostgreSQL. The tip
// transfer commits as a single transaction with row locks, so a failed debit
// leaves the ledger untouched.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/domain/wallet"
	"github.com/PSM-Network/social_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.TokenStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// mapNotFound rewrites driver misses to the storage sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- TokenStore -------------------------------------------------------------

// Identifiers are dense: MAX(id)+1 inside the insert keeps the sequence free
// of the gaps a serial column would leave on rollback. Write volume is low
// enough that the occasional unique-violation retry is not worth the locking.
func (s *Store) CreateToken(ctx context.Context, tok token.Token) (token.Token, error) {
	tok.MintedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO psm_tokens (id, owner, metadata_ref, minted_at)
		VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM psm_tokens), $1, $2, $3)
		RETURNING id
	`, tok.Owner, tok.MetadataRef, tok.MintedAt).Scan(&tok.ID)
	if err != nil {
		return token.Token{}, fmt.Errorf("create token: %w", err)
	}
	return tok, nil
}

func (s *Store) GetToken(ctx context.Context, id uint64) (token.Token, error) {
	var tok token.Token
	err := s.db.GetContext(ctx, &tok, `
		SELECT id, owner, metadata_ref, minted_at
		FROM psm_tokens
		WHERE id = $1
	`, id)
	if err != nil {
		return token.Token{}, mapNotFound(err)
	}
	return tok, nil
}

func (s *Store) ListTokensByOwner(ctx context.Context, owner string) ([]token.Token, error) {
	var result []token.Token
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, owner, metadata_ref, minted_at
		FROM psm_tokens
		WHERE owner = $1
		ORDER BY id
	`, owner)
	return result, err
}

func (s *Store) CountTokens(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM psm_tokens`)
	return count, err
}

func (s *Store) CountTokensByOwner(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM psm_tokens WHERE owner = $1
	`, owner)
	return count, err
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) SetProfile(ctx context.Context, owner string, tokenID uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO psm_profiles (owner, token_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE
		SET token_id = EXCLUDED.token_id, updated_at = EXCLUDED.updated_at
	`, owner, tokenID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, owner string) (uint64, error) {
	var tokenID uint64
	err := s.db.GetContext(ctx, &tokenID, `
		SELECT token_id FROM psm_profiles WHERE owner = $1
	`, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return tokenID, err
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	p.TipAmount = 0
	p.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO psm_posts (id, content_hash, tip_amount, author, created_at)
		VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM psm_posts), $1, 0, $2, $3)
		RETURNING id
	`, p.ContentHash, p.Author, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return post.Post{}, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id uint64) (post.Post, error) {
	var p post.Post
	err := s.db.GetContext(ctx, &p, `
		SELECT id, content_hash, tip_amount, author, created_at
		FROM psm_posts
		WHERE id = $1
	`, id)
	if err != nil {
		return post.Post{}, mapNotFound(err)
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]post.Post, error) {
	var result []post.Post
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, content_hash, tip_amount, author, created_at
		FROM psm_posts
		ORDER BY id
	`)
	return result, err
}

func (s *Store) CountPosts(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM psm_posts`)
	return count, err
}

// RecordTip debits the tipper, credits the author and bumps the post's tip
// total inside one transaction. The post row lock serializes concurrent tips
// to the same post.
func (s *Store) RecordTip(ctx context.Context, postID uint64, tipper string, amount int64) (post.Post, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return post.Post{}, fmt.Errorf("begin tip: %w", err)
	}
	defer tx.Rollback()

	var target post.Post
	err = tx.GetContext(ctx, &target, `
		SELECT id, content_hash, tip_amount, author, created_at
		FROM psm_posts
		WHERE id = $1
		FOR UPDATE
	`, postID)
	if err != nil {
		return post.Post{}, mapNotFound(err)
	}

	now := time.Now().UTC()
	if amount > 0 {
		var balance int64
		err = tx.GetContext(ctx, &balance, `
			SELECT balance FROM psm_wallets WHERE address = $1 FOR UPDATE
		`, tipper)
		if errors.Is(err, sql.ErrNoRows) {
			balance = 0
			err = nil
		}
		if err != nil {
			return post.Post{}, err
		}
		if balance < amount {
			return post.Post{}, storage.ErrInsufficientFunds
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE psm_wallets SET balance = balance - $2, updated_at = $3 WHERE address = $1
		`, tipper, amount, now); err != nil {
			return post.Post{}, fmt.Errorf("debit tipper: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO psm_wallets (address, balance, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (address) DO UPDATE
			SET balance = psm_wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		`, target.Author, amount, now); err != nil {
			return post.Post{}, fmt.Errorf("credit author: %w", err)
		}
	}

	err = tx.GetContext(ctx, &target.TipAmount, `
		UPDATE psm_posts SET tip_amount = tip_amount + $2 WHERE id = $1
		RETURNING tip_amount
	`, postID, amount)
	if err != nil {
		return post.Post{}, fmt.Errorf("update tip total: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO psm_transfers (id, kind, from_address, to_address, post_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), wallet.KindTip, tipper, target.Author, postID, amount, now); err != nil {
		return post.Post{}, fmt.Errorf("journal tip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return post.Post{}, fmt.Errorf("commit tip: %w", err)
	}
	return target, nil
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) Credit(ctx context.Context, address string, amount int64) (wallet.Account, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var acct wallet.Account
	err = tx.GetContext(ctx, &acct, `
		INSERT INTO psm_wallets (address, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET balance = psm_wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING address, balance, updated_at
	`, address, amount, now)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("credit wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO psm_transfers (id, kind, from_address, to_address, post_id, amount, created_at)
		VALUES ($1, $2, '', $3, 0, $4, $5)
	`, uuid.NewString(), wallet.KindDeposit, address, amount, now); err != nil {
		return wallet.Account{}, fmt.Errorf("journal deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return wallet.Account{}, fmt.Errorf("commit credit: %w", err)
	}
	return acct, nil
}

// GetWallet reads an account; unknown addresses return a zero balance rather
// than an error, matching implicit account creation.
func (s *Store) GetWallet(ctx context.Context, address string) (wallet.Account, error) {
	var acct wallet.Account
	err := s.db.GetContext(ctx, &acct, `
		SELECT address, balance, updated_at
		FROM psm_wallets
		WHERE address = $1
	`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Account{Address: address}, nil
	}
	if err != nil {
		return wallet.Account{}, err
	}
	return acct, nil
}

func (s *Store) ListTransfers(ctx context.Context, address string) ([]wallet.Transfer, error) {
	var result []wallet.Transfer
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, kind, from_address, to_address, post_id, amount, created_at
		FROM psm_transfers
		WHERE from_address = $1 OR to_address = $1
		ORDER BY created_at, id
	`, address)
	return result, err
}
