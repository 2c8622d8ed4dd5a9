package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PSM-Network/social_layer/internal/app/events"
	"github.com/PSM-Network/social_layer/internal/app/services/posts"
	"github.com/PSM-Network/social_layer/internal/app/services/profiles"
	"github.com/PSM-Network/social_layer/internal/app/services/query"
	"github.com/PSM-Network/social_layer/internal/app/services/registry"
	"github.com/PSM-Network/social_layer/internal/app/services/tipping"
	"github.com/PSM-Network/social_layer/internal/app/services/wallets"
	"github.com/PSM-Network/social_layer/internal/app/storage"
	"github.com/PSM-Network/social_layer/internal/app/storage/memory"
	"github.com/PSM-Network/social_layer/internal/app/system"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Tokens   storage.TokenStore
	Profiles storage.ProfileStore
	Posts    storage.PostStore
	Wallets  storage.WalletStore
}

// Options tunes optional application behaviour. The zero value disables the
// metadata fetcher and keeps the default stats schedule.
type Options struct {
	// MetadataGateway, when set, enables token metadata enrichment
	// through the given HTTP gateway (e.g. https://ipfs.io/ipfs/).
	MetadataGateway string

	// StatsSchedule overrides the ledger totals reporting cadence.
	StatsSchedule string

	// EventBufferSize caps the in-memory notification ring. Zero uses the
	// default.
	EventBufferSize int
}

// Application ties the ledger services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Registry *registry.Service
	Profiles *profiles.Service
	Posts    *posts.Service
	Tipping  *tipping.Service
	Wallets  *wallets.Service
	Query    *query.Service

	Events events.Log
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Tokens == nil {
		stores.Tokens = mem
	}
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.Posts == nil {
		stores.Posts = mem
	}
	if stores.Wallets == nil {
		stores.Wallets = mem
	}

	manager := system.NewManager()

	bufSize := opts.EventBufferSize
	if bufSize <= 0 {
		bufSize = events.DefaultBufferSize
	}
	eventLog := events.NewRingBuffer(bufSize)

	registryService := registry.New(stores.Tokens, stores.Profiles, log)
	profileService := profiles.New(stores.Tokens, stores.Profiles, log)
	postService := posts.New(stores.Tokens, stores.Posts, log)
	postService.AttachEvents(eventLog)
	tipService := tipping.New(stores.Posts, log)
	tipService.AttachEvents(eventLog)
	walletService := wallets.New(stores.Wallets, log)
	queryService := query.New(stores.Tokens, stores.Posts, log)

	if opts.MetadataGateway != "" {
		httpClient := &http.Client{Timeout: 10 * time.Second}
		fetcher, err := query.NewHTTPMetadataFetcher(httpClient, opts.MetadataGateway, log)
		if err != nil {
			log.WithError(err).Warn("configure metadata fetcher")
		} else {
			queryService.WithFetcher(fetcher)
		}
	} else {
		log.Warn("metadata gateway not set; token metadata enrichment disabled")
	}

	for _, name := range []string{"registry", "profiles", "posts", "tipping", "wallets"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	reporter := query.NewStatsReporter(queryService, opts.StatsSchedule, log)
	if err := manager.Register(reporter); err != nil {
		return nil, fmt.Errorf("register %s: %w", reporter.Name(), err)
	}

	return &Application{
		manager:  manager,
		log:      log,
		Registry: registryService,
		Profiles: profileService,
		Posts:    postService,
		Tipping:  tipService,
		Wallets:  walletService,
		Query:    queryService,
		Events:   eventLog,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
