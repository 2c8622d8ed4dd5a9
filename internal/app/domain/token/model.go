package token

import "time"

// Token is a uniquely numbered ownership record. Identifiers are dense and
// assigned sequentially starting at 1; tokens are never destroyed and
// ownership is single and exclusive.
type Token struct {
	ID          uint64    `json:"id" db:"id"`
	Owner       string    `json:"owner" db:"owner"`
	MetadataRef string    `json:"metadata_ref" db:"metadata_ref"`
	MintedAt    time.Time `json:"minted_at" db:"minted_at"`
}
