package wallet

import "time"

// Amounts are expressed in the smallest currency unit (1e-8 of the native
// coin), so balances stay in integer arithmetic.

// Account holds the spendable balance for an address. Accounts are created
// implicitly on first deposit or first received tip.
type Account struct {
	Address   string    `json:"address" db:"address"`
	Balance   int64     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TransferKind classifies a ledger movement.
type TransferKind string

const (
	KindDeposit TransferKind = "deposit"
	KindTip     TransferKind = "tip"
)

// Transfer is one journal entry. Tips carry the post they were recorded
// against; deposits have no counterparty.
type Transfer struct {
	ID        string       `json:"id" db:"id"`
	Kind      TransferKind `json:"kind" db:"kind"`
	From      string       `json:"from,omitempty" db:"from_address"`
	To        string       `json:"to" db:"to_address"`
	PostID    uint64       `json:"post_id,omitempty" db:"post_id"`
	Amount    int64        `json:"amount" db:"amount"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
