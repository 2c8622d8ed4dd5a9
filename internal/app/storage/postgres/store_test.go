package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/internal/platform/database"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)

	tok, err := store.CreateToken(ctx, token.Token{Owner: "alice", MetadataRef: "ipfs://QmMeta"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := store.SetProfile(ctx, "alice", tok.ID); err != nil {
		t.Fatalf("set profile: %v", err)
	}

	p, err := store.CreatePost(ctx, post.Post{ContentHash: "QmHash", Author: "alice"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if _, err := store.Credit(ctx, "bob", 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	updated, err := store.RecordTip(ctx, p.ID, "bob", 60)
	if err != nil {
		t.Fatalf("record tip: %v", err)
	}
	if updated.TipAmount < 60 {
		t.Fatalf("tip total not applied: %d", updated.TipAmount)
	}

	if _, err := store.RecordTip(ctx, p.ID, "carol", 1); !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	aliceWallet, err := store.GetWallet(ctx, "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if aliceWallet.Balance < 60 {
		t.Fatalf("author not credited: %d", aliceWallet.Balance)
	}
}
