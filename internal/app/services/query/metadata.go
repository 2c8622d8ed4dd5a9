package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/PSM-Network/social_layer/pkg/logger"
)

// ErrNoFetcher is returned when metadata enrichment is not configured.
var ErrNoFetcher = errors.New("metadata fetcher not configured")

// maxMetadataBytes caps the document size read from a gateway.
const maxMetadataBytes = 1 << 20

// Metadata is the display portion of a token's metadata document.
type Metadata struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// MetadataFetcher resolves a metadata reference to its display fields.
type MetadataFetcher interface {
	Fetch(ctx context.Context, ref string) (Metadata, error)
}

// HTTPMetadataFetcher pulls metadata documents over HTTP. ipfs:// references
// are rewritten through the configured gateway.
type HTTPMetadataFetcher struct {
	client  *http.Client
	gateway *url.URL
	log     *logger.Logger
}

// NewHTTPMetadataFetcher constructs a fetcher using the provided gateway,
// e.g. https://ipfs.io/ipfs/.
func NewHTTPMetadataFetcher(client *http.Client, gateway string, log *logger.Logger) (*HTTPMetadataFetcher, error) {
	gateway = strings.TrimSpace(gateway)
	if gateway == "" {
		return nil, fmt.Errorf("metadata gateway required")
	}
	parsed, err := url.Parse(gateway)
	if err != nil {
		return nil, fmt.Errorf("parse metadata gateway: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("metadata-fetcher")
	}
	return &HTTPMetadataFetcher{
		client:  client,
		gateway: parsed,
		log:     log,
	}, nil
}

func (f *HTTPMetadataFetcher) Fetch(ctx context.Context, ref string) (Metadata, error) {
	target, err := f.resolve(ref)
	if err != nil {
		return Metadata{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("metadata status %d for %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Metadata{}, fmt.Errorf("metadata for %s is not valid JSON", target)
	}

	return Metadata{
		Name:  gjson.GetBytes(body, "name").String(),
		Image: gjson.GetBytes(body, "image").String(),
	}, nil
}

func (f *HTTPMetadataFetcher) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("metadata reference is empty")
	}
	if cid, ok := strings.CutPrefix(ref, "ipfs://"); ok {
		return f.gateway.JoinPath(cid).String(), nil
	}
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme == "" {
		// Bare references are treated as gateway paths.
		return f.gateway.JoinPath(ref).String(), nil
	}
	return ref, nil
}
