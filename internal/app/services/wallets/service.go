// Package wallets manages spendable balances. The ledger never holds funds of
// its own; balances only move on deposits and tips.
package wallets

import (
	"context"
	"fmt"
	"strings"

	"github.com/PSM-Network/social_layer/internal/app/domain/wallet"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// Service exposes deposits and balance queries over the wallet store.
type Service struct {
	store storage.WalletStore
	log   *logger.Logger
}

// New constructs a wallet service.
func New(store storage.WalletStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wallets")
	}
	return &Service{
		store: store,
		log:   log,
	}
}

// Deposit credits an address. Accounts are created on first use.
func (s *Service) Deposit(ctx context.Context, address string, amount int64) (wallet.Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return wallet.Account{}, fmt.Errorf("address is required")
	}
	if amount <= 0 {
		return wallet.Account{}, fmt.Errorf("deposit amount must be positive")
	}

	acct, err := s.store.Credit(ctx, address, amount)
	if err != nil {
		return wallet.Account{}, err
	}
	s.log.WithField("address", address).
		WithField("amount", amount).
		Info("wallet funded")
	return acct, nil
}

// BalanceOf returns an address's spendable balance, 0 for unknown addresses.
func (s *Service) BalanceOf(ctx context.Context, address string) (int64, error) {
	acct, err := s.store.GetWallet(ctx, strings.TrimSpace(address))
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Get returns the full wallet record.
func (s *Service) Get(ctx context.Context, address string) (wallet.Account, error) {
	return s.store.GetWallet(ctx, strings.TrimSpace(address))
}

// Transfers returns the journal entries involving an address, oldest first.
func (s *Service) Transfers(ctx context.Context, address string) ([]wallet.Transfer, error) {
	return s.store.ListTransfers(ctx, strings.TrimSpace(address))
}
