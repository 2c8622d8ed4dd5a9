package query

import (
	"context"
	"errors"
	"testing"

	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
	"github.com/PSM-Network/social_layer/internal/app/storage/memory"
)

func TestService_AllPostsAscending(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for _, h := range []string{"QmOne", "QmTwo", "QmThree"} {
		if _, err := store.CreatePost(ctx, post.Post{ContentHash: h, Author: "alice"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	svc := New(store, store, nil)
	all, err := svc.AllPosts(ctx)
	if err != nil {
		t.Fatalf("all posts: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 posts, got %d", len(all))
	}
	for i, p := range all {
		if p.ID != uint64(i+1) {
			t.Fatalf("posts out of order at %d: %+v", i, p)
		}
	}
}

func TestService_TokensOfFiltersByOwner(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.CreateToken(ctx, token.Token{Owner: "alice", MetadataRef: "ipfs://a"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.CreateToken(ctx, token.Token{Owner: "bob", MetadataRef: "ipfs://b"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.CreateToken(ctx, token.Token{Owner: "alice", MetadataRef: "ipfs://c"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := New(store, store, nil)
	mine, err := svc.TokensOf(ctx, "alice")
	if err != nil {
		t.Fatalf("tokens of: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("want 2 tokens, got %d", len(mine))
	}
	if mine[0].ID != 1 || mine[1].ID != 3 {
		t.Fatalf("wrong tokens returned: %+v", mine)
	}

	none, err := svc.TokensOf(ctx, "carol")
	if err != nil {
		t.Fatalf("tokens of: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("carol owns nothing, got %+v", none)
	}
}

func TestService_Totals(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.CreateToken(ctx, token.Token{Owner: "alice"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := store.CreatePost(ctx, post.Post{ContentHash: "QmHash", Author: "alice"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Credit(ctx, "bob", 100); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := store.RecordTip(ctx, p.ID, "bob", 40); err != nil {
		t.Fatalf("tip: %v", err)
	}

	svc := New(store, store, nil)
	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Tokens != 1 || totals.Posts != 1 || totals.TipVolume != 40 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestService_TokenMetadataWithoutFetcher(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.TokenMetadata(context.Background(), 1); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}
}
