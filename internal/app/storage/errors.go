package storage

import "errors"

// ErrNotFound is returned when a lookup names a record that does not exist.
// Stores wrap it with record context; callers test with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrInsufficientFunds is returned by RecordTip when the tipper's wallet
// cannot cover the amount. The whole tip aborts with no mutation.
var ErrInsufficientFunds = errors.New("insufficient funds")
