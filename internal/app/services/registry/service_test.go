package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/internal/app/storage/memory"
)

func TestService_MintAssignsSequentialIDs(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	first, err := svc.Mint(ctx, "alice", "ipfs://meta-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("first token id should be 1, got %d", first.ID)
	}

	second, err := svc.Mint(ctx, "bob", "ipfs://meta-2")
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("second token id should be 2, got %d", second.ID)
	}

	count, err := svc.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("count: %d, %v", count, err)
	}

	owner, err := svc.OwnerOf(ctx, 1)
	if err != nil || owner != "alice" {
		t.Fatalf("owner of 1: %s, %v", owner, err)
	}
	balance, err := svc.BalanceOf(ctx, "alice")
	if err != nil || balance != 1 {
		t.Fatalf("balance of alice: %d, %v", balance, err)
	}
}

func TestService_MintSetsProfileToNewestToken(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	if _, err := svc.Mint(ctx, "alice", "uri-1"); err != nil {
		t.Fatalf("mint 1: %v", err)
	}
	if _, err := svc.Mint(ctx, "alice", "uri-2"); err != nil {
		t.Fatalf("mint 2: %v", err)
	}

	profile, err := store.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile != 2 {
		t.Fatalf("profile should follow newest mint, got %d", profile)
	}
}

func TestService_MintAcceptsEmptyMetadata(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	tok, err := svc.Mint(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("mint with empty metadata: %v", err)
	}
	if tok.MetadataRef != "" {
		t.Fatalf("metadata should be stored as-is: %q", tok.MetadataRef)
	}
}

func TestService_OwnerOfUnknownToken(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	if _, err := svc.OwnerOf(ctx, 0); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for id 0, got %v", err)
	}
	if _, err := svc.OwnerOf(ctx, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for id 99, got %v", err)
	}
}

func TestService_MintRequiresOwner(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.Mint(context.Background(), "  ", "uri"); err == nil {
		t.Fatal("expected error for blank owner")
	}
}
