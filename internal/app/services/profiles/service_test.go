package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/internal/app/storage/memory"
)

func TestService_SelectRequiresOwnership(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.CreateToken(ctx, token.Token{Owner: "alice"}); err != nil {
		t.Fatalf("create token: %v", err)
	}

	svc := New(store, store, nil)

	if err := svc.Select(ctx, "alice", 1); err != nil {
		t.Fatalf("owner select: %v", err)
	}
	profile, _ := svc.ProfileOf(ctx, "alice")
	if profile != 1 {
		t.Fatalf("profile not set: %d", profile)
	}

	if err := svc.Select(ctx, "bob", 1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	// bob's failed select must not touch his profile
	profile, _ = svc.ProfileOf(ctx, "bob")
	if profile != 0 {
		t.Fatalf("failed select mutated profile: %d", profile)
	}
}

func TestService_SelectOverridesMintDefault(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := store.CreateToken(ctx, token.Token{Owner: "alice"}); err != nil {
			t.Fatalf("create token: %v", err)
		}
	}
	_ = store.SetProfile(ctx, "alice", 2) // mint default: newest token

	svc := New(store, store, nil)
	if err := svc.Select(ctx, "alice", 1); err != nil {
		t.Fatalf("select older token: %v", err)
	}
	profile, _ := svc.ProfileOf(ctx, "alice")
	if profile != 1 {
		t.Fatalf("explicit selection not honoured: %d", profile)
	}

	// Re-selecting the current profile is idempotent.
	if err := svc.Select(ctx, "alice", 1); err != nil {
		t.Fatalf("idempotent select: %v", err)
	}
}

func TestService_SelectUnknownToken(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if err := svc.Select(context.Background(), "alice", 7); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_ProfileOfUnknownAccount(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	profile, err := svc.ProfileOf(context.Background(), "nobody")
	if err != nil || profile != 0 {
		t.Fatalf("expected 0 sentinel, got %d, %v", profile, err)
	}
}
