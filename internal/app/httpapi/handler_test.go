package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/PSM-Network/social_layer/internal/app"
	"github.com/PSM-Network/social_layer/internal/app/domain/post"
	"github.com/PSM-Network/social_layer/internal/app/domain/token"
)

const testAuthToken = "test-token"

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })

	handler, err := NewHandler(application, cfg, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestHandlerLifecycle(t *testing.T) {
	handler := newTestHandler(t, Config{AuthTokens: []string{testAuthToken}})

	mintBody := marshal(map[string]any{"metadata_ref": "ipfs://QmMeta"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/accounts/alice/tokens", mintBody))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 mint, got %d: %s", resp.Code, resp.Body.String())
	}
	var tok token.Token
	if err := json.Unmarshal(resp.Body.Bytes(), &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if tok.ID != 1 || tok.Owner != "alice" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/accounts/alice/balance", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 balance, got %d", resp.Code)
	}
	var balance map[string]int
	if err := json.Unmarshal(resp.Body.Bytes(), &balance); err != nil {
		t.Fatalf("unmarshal balance: %v", err)
	}
	if balance["balance"] != 1 {
		t.Fatalf("expected balance 1, got %d", balance["balance"])
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/accounts/alice/profile", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 profile, got %d", resp.Code)
	}
	var profile map[string]uint64
	if err := json.Unmarshal(resp.Body.Bytes(), &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile["token_id"] != 1 {
		t.Fatalf("mint should set profile, got %d", profile["token_id"])
	}

	selectBody := marshal(map[string]any{"token_id": 1})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPut, "/accounts/alice/profile", selectBody))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 select profile, got %d", resp.Code)
	}

	postBody := marshal(map[string]any{"content_hash": "QmHash"})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/accounts/alice/posts", postBody))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 upload, got %d: %s", resp.Code, resp.Body.String())
	}
	var created post.Post
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal post: %v", err)
	}
	if created.ID != 1 || created.Author != "alice" {
		t.Fatalf("unexpected post: %+v", created)
	}

	depositBody := marshal(map[string]any{"amount": 100})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/accounts/bob/wallet/deposits", depositBody))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 deposit, got %d: %s", resp.Code, resp.Body.String())
	}

	tipBody := marshal(map[string]any{"post_id": 1, "amount": 40})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/accounts/bob/tips", tipBody))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 tip, got %d: %s", resp.Code, resp.Body.String())
	}
	var tipped post.Post
	if err := json.Unmarshal(resp.Body.Bytes(), &tipped); err != nil {
		t.Fatalf("unmarshal tipped post: %v", err)
	}
	if tipped.TipAmount != 40 {
		t.Fatalf("expected tip total 40, got %d", tipped.TipAmount)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/accounts/alice/wallet", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 wallet, got %d", resp.Code)
	}
	var acct map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &acct); err != nil {
		t.Fatalf("unmarshal wallet: %v", err)
	}
	if acct["balance"].(float64) != 40 {
		t.Fatalf("author should hold the tip, got %v", acct["balance"])
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/accounts/bob/wallet/transfers", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 transfers, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/posts", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 posts, got %d", resp.Code)
	}
	var all []post.Post
	if err := json.Unmarshal(resp.Body.Bytes(), &all); err != nil {
		t.Fatalf("unmarshal posts: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 post, got %d", len(all))
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/posts/1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 post by id, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/tokens/1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 token by id, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/events?limit=10", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 events, got %d", resp.Code)
	}
	var recent []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &recent); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 events (created+tipped), got %d", len(recent))
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/stats", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 stats, got %d", resp.Code)
	}
	var totals map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &totals); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if totals["tip_volume"].(float64) != 40 {
		t.Fatalf("expected tip volume 40, got %v", totals["tip_volume"])
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/audit?limit=5", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 audit, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", resp.Code)
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("expected metrics output to be non-empty")
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", resp.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	handler := newTestHandler(t, Config{})

	// Posting without a token is forbidden.
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/carol/posts", marshal(map[string]any{"content_hash": "QmX"})))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for tokenless upload, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/carol/tokens", marshal(map[string]any{})))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 mint, got %d", resp.Code)
	}

	// Empty hash is a bad request once the token gate passes.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/carol/posts", marshal(map[string]any{"content_hash": ""})))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 empty hash, got %d", resp.Code)
	}

	// Selecting someone else's token is forbidden.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPut, "/accounts/mallory/profile", marshal(map[string]any{"token_id": 1})))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 foreign profile select, got %d", resp.Code)
	}

	// Tipping a nonexistent post is a bad request.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/mallory/tips", marshal(map[string]any{"post_id": 99, "amount": 5})))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid post id, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodGet, "/posts/99", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 unknown post, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodGet, "/tokens/99", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 unknown token, got %d", resp.Code)
	}

	// Metadata enrichment is not configured in this test.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodGet, "/tokens/1/metadata", nil))
	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without fetcher, got %d", resp.Code)
	}
}

func TestHandlerAuthRequired(t *testing.T) {
	handler := newTestHandler(t, Config{AuthTokens: []string{testAuthToken}})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/posts", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	// Probes stay open.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 health without auth, got %d", resp.Code)
	}
}

func TestHandlerWriteRateLimit(t *testing.T) {
	handler := newTestHandler(t, Config{WriteRPS: 1, WriteBurst: 1})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/alice/tokens", marshal(map[string]any{})))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 first write, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodPost, "/accounts/alice/tokens", marshal(map[string]any{})))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 second write, got %d", resp.Code)
	}

	// Reads are never throttled.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, request(http.MethodGet, "/posts", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 read, got %d", resp.Code)
	}
}

func authedRequest(method, url string, body []byte) *http.Request {
	req := request(method, url, body)
	req.Header.Set("Authorization", "Bearer "+testAuthToken)
	return req
}

func request(method, url string, body []byte) *http.Request {
	return httptest.NewRequest(method, url, bytes.NewReader(body))
}

func marshal(v any) []byte {
	buf, _ := json.Marshal(v)
	return buf
}
