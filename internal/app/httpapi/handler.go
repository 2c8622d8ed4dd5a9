// Package httpapi exposes the ledger over REST. Routing follows plain
// net/http with manual path splitting; callers are addressed by the account
// segment of the URL.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/PSM-Network/social_layer/internal/app"
	"github.com/PSM-Network/social_layer/internal/app/events"
	"github.com/PSM-Network/social_layer/internal/app/metrics"
	"github.com/PSM-Network/social_layer/internal/app/services/posts"
	"github.com/PSM-Network/social_layer/internal/app/services/profiles"
	"github.com/PSM-Network/social_layer/internal/app/services/query"
	"github.com/PSM-Network/social_layer/internal/app/services/tipping"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// Config tunes the HTTP surface. The zero value serves unauthenticated with
// no audit sink and no write throttle.
type Config struct {
	// AuthTokens lists accepted bearer tokens. Empty disables auth.
	AuthTokens []string

	// AllowedOrigins lists CORS origins. Empty allows the localhost dev
	// defaults.
	AllowedOrigins []string

	// AuditPath appends audit entries as JSONL when set.
	AuditPath string

	// AuditMax caps the in-memory audit ring.
	AuditMax int

	// WriteRPS throttles mutating requests per second; zero disables.
	WriteRPS float64

	// WriteBurst is the throttle burst allowance.
	WriteBurst int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the assembled REST API with middleware applied.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) (http.Handler, error) {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}

	sink, err := newFileAuditSink(cfg.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit sink: %w", err)
	}

	h := &handler{
		app:   application,
		audit: newAuditLog(cfg.AuditMax, sink),
		log:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/posts", h.posts)
	mux.HandleFunc("/posts/", h.postResources)
	mux.HandleFunc("/tokens/", h.tokenResources)
	mux.HandleFunc("/events", h.events)
	mux.HandleFunc("/events/ws", h.eventsWS)
	mux.HandleFunc("/stats", h.stats)
	mux.HandleFunc("/audit", h.auditEntries)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())

	var wrapped http.Handler = mux
	wrapped = metrics.InstrumentHandler(wrapped)
	wrapped = h.auditMiddleware(wrapped)
	if cfg.WriteRPS > 0 {
		wrapped = writeLimitMiddleware(wrapped, cfg.WriteRPS, cfg.WriteBurst)
	}
	if len(cfg.AuthTokens) > 0 {
		wrapped = authMiddleware(wrapped, cfg.AuthTokens)
	}
	wrapped = corsMiddleware(wrapped, cfg.AllowedOrigins)
	return wrapped, nil
}

// statusFor maps service errors to HTTP statuses. Unrecognised errors default
// to 400 since every write validates its own input.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, profiles.ErrNotOwner),
		errors.Is(err, posts.ErrNoToken),
		errors.Is(err, tipping.ErrSelfTip):
		return http.StatusForbidden
	case errors.Is(err, posts.ErrEmptyHash),
		errors.Is(err, tipping.ErrInvalidPostID),
		errors.Is(err, storage.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrNoFetcher):
		return http.StatusNotImplemented
	default:
		return http.StatusBadRequest
	}
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	address := parts[0]

	switch parts[1] {
	case "tokens":
		h.accountTokens(w, r, address)
	case "balance":
		h.accountBalance(w, r, address)
	case "profile":
		h.accountProfile(w, r, address)
	case "posts":
		h.accountPosts(w, r, address)
	case "tips":
		h.accountTips(w, r, address)
	case "wallet":
		h.accountWallet(w, r, address, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountTokens(w http.ResponseWriter, r *http.Request, address string) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			MetadataRef string `json:"metadata_ref"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tok, err := h.app.Registry.Mint(r.Context(), address, payload.MetadataRef)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, tok)

	case http.MethodGet:
		tokens, err := h.app.Query.TokensOf(r.Context(), address)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, tokens)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountBalance(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	count, err := h.app.Registry.BalanceOf(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": count})
}

func (h *handler) accountProfile(w http.ResponseWriter, r *http.Request, address string) {
	switch r.Method {
	case http.MethodGet:
		tokenID, err := h.app.Profiles.ProfileOf(r.Context(), address)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"token_id": tokenID})

	case http.MethodPut:
		var payload struct {
			TokenID uint64 `json:"token_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Profiles.Select(r.Context(), address, payload.TokenID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"token_id": payload.TokenID})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountPosts(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ContentHash string `json:"content_hash"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Posts.Upload(r.Context(), address, payload.ContentHash)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) accountTips(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		PostID uint64 `json:"post_id"`
		Amount int64  `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Tipping.Tip(r.Context(), address, payload.PostID, payload.Amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) accountWallet(w http.ResponseWriter, r *http.Request, address string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Wallets.Get(r.Context(), address)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
		return
	}

	switch rest[0] {
	case "deposits":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Amount int64 `json:"amount"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		acct, err := h.app.Wallets.Deposit(r.Context(), address, payload.Amount)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, acct)

	case "transfers":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		transfers, err := h.app.Wallets.Transfers(r.Context(), address)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, transfers)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) posts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	all, err := h.app.Query.AllPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *handler) postResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/posts"), "/")
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid post id %q", trimmed))
		return
	}
	p, err := h.app.Posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) tokenResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tokens"), "/")
	parts := strings.Split(trimmed, "/")
	if parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid token id %q", parts[0]))
		return
	}

	if len(parts) == 1 {
		tok, err := h.app.Registry.Get(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, tok)
		return
	}

	if len(parts) == 2 && parts[1] == "metadata" {
		meta, err := h.app.Query.TokenMetadata(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	var recent []events.Event
	if kind := r.URL.Query().Get("type"); kind != "" {
		recent = h.app.Events.RecentByType(events.Type(kind), limit)
	} else {
		recent = h.app.Events.Recent(limit)
	}
	writeJSON(w, http.StatusOK, recent)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	totals, err := h.app.Query.Totals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
