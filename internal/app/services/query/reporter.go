package query

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/PSM-Network/social_layer/internal/app/system"
	"github.com/PSM-Network/social_layer/pkg/logger"
)

// DefaultStatsSchedule drives the periodic totals log line.
const DefaultStatsSchedule = "@every 1m"

// StatsReporter periodically logs ledger totals. It is observability sugar
// only; nothing reads its output programmatically.
type StatsReporter struct {
	query    *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

var _ system.Service = (*StatsReporter)(nil)

// NewStatsReporter builds a reporter on the given schedule (cron spec or
// "@every" form).
func NewStatsReporter(query *Service, schedule string, log *logger.Logger) *StatsReporter {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &StatsReporter{
		query:    query,
		schedule: schedule,
		log:      log,
	}
}

func (r *StatsReporter) Name() string { return "stats-reporter" }

func (r *StatsReporter) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.report); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	r.running = true
	r.log.WithField("schedule", r.schedule).Info("stats reporter started")
	return nil
}

func (r *StatsReporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *StatsReporter) report() {
	totals, err := r.query.Totals(context.Background())
	if err != nil {
		r.log.WithError(err).Warn("collect ledger totals")
		return
	}
	r.log.WithField("tokens", totals.Tokens).
		WithField("posts", totals.Posts).
		WithField("tip_volume", totals.TipVolume).
		Info("ledger totals")
}
