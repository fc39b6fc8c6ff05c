// Package ingest runs the periodic pipeline cycles: scraping the listing
// site, draining the monitored channels and purging expired data.
package ingest

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"rentbot/internal/cities"
	"rentbot/internal/dedup"
	"rentbot/internal/model"
	"rentbot/internal/queryplan"
	"rentbot/internal/storage"
)

// ListingSource fetches full-apartment listings for one planned query.
type ListingSource interface {
	Fetch(ctx context.Context, q model.Query) ([]model.Apartment, error)
}

// RoomSharePoller ingests new room-sharing offers from monitored channels.
type RoomSharePoller interface {
	PollNext(ctx context.Context) ([]model.RoomShare, error)
}

// Notifier delivers matched listings and reports which ones were handed to
// the transport.
type Notifier interface {
	NotifyApartments(ctx context.Context, r model.Recipient, listings []model.Apartment) ([]int64, error)
	NotifyRoomShares(ctx context.Context, r model.Recipient, listings []model.RoomShare) ([]int64, error)
}

// Config holds the cycle timing knobs. Zero values take defaults.
type Config struct {
	ScrapeInterval      time.Duration
	ChannelPollInterval time.Duration
	PurgeInterval       time.Duration
	FetchTimeout        time.Duration
	// Retention is how long listings are kept.
	Retention time.Duration
	// SeenRetention is how long delivery marks outlive their listings.
	SeenRetention time.Duration
}

func (c Config) withDefaults() Config {
	if c.ScrapeInterval <= 0 {
		c.ScrapeInterval = time.Minute
	}
	if c.ChannelPollInterval <= 0 {
		c.ChannelPollInterval = 90 * time.Second
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = 24 * time.Hour
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 3 * 24 * time.Hour
	}
	if c.SeenRetention <= 0 {
		c.SeenRetention = 30 * 24 * time.Hour
	}
	return c
}

// Orchestrator ties the pipeline together. The three cycles run on
// independent schedules; each holds its own lock so overlapping ticks of
// one cycle are skipped without blocking the others.
type Orchestrator struct {
	store    storage.Storage
	source   ListingSource
	poller   RoomSharePoller
	notifier Notifier
	engine   *dedup.Engine
	cfg      Config
	now      func() time.Time
	log      *slog.Logger

	scrapeMu  sync.Mutex
	channelMu sync.Mutex
	purgeMu   sync.Mutex
}

// New creates an Orchestrator.
func New(store storage.Storage, source ListingSource, poller RoomSharePoller, notifier Notifier, engine *dedup.Engine, cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		source:   source,
		poller:   poller,
		notifier: notifier,
		engine:   engine,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		log:      log,
	}
}

// Run executes the cycles until ctx is cancelled. Each cycle also runs
// once at startup so a restart does not wait a full interval.
func (o *Orchestrator) Run(ctx context.Context) {
	scrapeTicker := time.NewTicker(o.cfg.ScrapeInterval)
	defer scrapeTicker.Stop()
	channelTicker := time.NewTicker(o.cfg.ChannelPollInterval)
	defer channelTicker.Stop()
	purgeTicker := time.NewTicker(o.cfg.PurgeInterval)
	defer purgeTicker.Stop()

	o.ScrapeCycle(ctx)
	o.ChannelCycle(ctx)
	o.PurgeCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.log.Info("orchestrator stopped")
			return
		case <-scrapeTicker.C:
			o.ScrapeCycle(ctx)
		case <-channelTicker.C:
			o.ChannelCycle(ctx)
		case <-purgeTicker.C:
			o.PurgeCycle(ctx)
		}
	}
}

// ScrapeCycle fetches apartments for the optimized query plan, persists
// them and notifies every full-apartment filter owner. Candidates come
// from the store rather than the fetch result, so listings ingested in an
// earlier cycle still reach a recipient whose delivery failed back then.
func (o *Orchestrator) ScrapeCycle(ctx context.Context) {
	if !o.scrapeMu.TryLock() {
		o.log.Warn("scrape cycle still running, skipping tick")
		return
	}
	defer o.scrapeMu.Unlock()

	filters, err := o.store.ListFilters(ctx)
	if err != nil {
		o.log.Error("list filters", "error", err)
		return
	}

	for _, q := range queryplan.Optimize(filters) {
		fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
		listings, err := o.source.Fetch(fetchCtx, q)
		cancel()
		if err != nil {
			// A failed fetch contributes zero candidates this cycle; the
			// next cycle retries the same query.
			o.log.Error("fetch listings", "city", q.City, "error", err)
			continue
		}
		for i := range listings {
			if _, err := o.store.InsertApartment(ctx, &listings[i]); err != nil {
				o.log.Error("insert apartment", "url", listings[i].URL, "error", err)
			}
		}
	}

	byCity := make(map[string][]model.Apartment)
	for _, f := range orderRecipients(filters) {
		if f.Type != model.FullApartment || f.Validate() != nil {
			continue
		}
		city := cities.Normalize(f.Apartment.City)
		if !cities.Known(city) {
			continue
		}

		candidates, ok := byCity[city]
		if !ok {
			candidates, err = o.store.ListApartmentsByCity(ctx, city)
			if err != nil {
				o.log.Error("list apartments", "city", city, "error", err)
				continue
			}
			byCity[city] = candidates
		}

		o.notifyApartments(ctx, f.Owner, candidates, *f.Apartment)
	}
}

// ChannelCycle drains the next monitored channel and notifies every
// room-sharing filter owner. A poll failure still lets the store-backed
// matching run: earlier offers may be undelivered.
func (o *Orchestrator) ChannelCycle(ctx context.Context) {
	if !o.channelMu.TryLock() {
		o.log.Warn("channel cycle still running, skipping tick")
		return
	}
	defer o.channelMu.Unlock()

	if _, err := o.poller.PollNext(ctx); err != nil {
		o.log.Error("poll channel", "error", err)
	}

	filters, err := o.store.ListFilters(ctx)
	if err != nil {
		o.log.Error("list filters", "error", err)
		return
	}

	byCity := make(map[string][]model.RoomShare)
	for _, f := range orderRecipients(filters) {
		if f.Type != model.RoomSharing || f.Validate() != nil {
			continue
		}
		city := cities.Normalize(f.Room.City)

		candidates, ok := byCity[city]
		if !ok {
			candidates, err = o.store.ListRoomShares(ctx, city)
			if err != nil {
				o.log.Error("list room shares", "city", city, "error", err)
				continue
			}
			byCity[city] = candidates
		}

		o.notifyRoomShares(ctx, f.Owner, candidates, *f.Room)
	}
}

// PurgeCycle drops listings past retention together with their seen marks,
// plus marks past the seen-retention window.
func (o *Orchestrator) PurgeCycle(ctx context.Context) {
	if !o.purgeMu.TryLock() {
		return
	}
	defer o.purgeMu.Unlock()

	now := o.now()
	purged, err := o.store.Purge(ctx, now.Add(-o.cfg.Retention), now.Add(-o.cfg.SeenRetention))
	if err != nil {
		o.log.Error("purge", "error", err)
		return
	}
	if purged > 0 {
		o.log.Info("purged expired listings", "count", purged)
	}
}

func (o *Orchestrator) notifyApartments(ctx context.Context, r model.Recipient, candidates []model.Apartment, f model.ApartmentFilter) {
	unseen, err := o.engine.UnseenApartments(ctx, r, candidates, f)
	if err != nil {
		o.log.Error("select unseen apartments", "recipient", r.ID, "error", err)
		return
	}
	delivered, err := o.notifier.NotifyApartments(ctx, r, unseen)
	if err != nil {
		// Partial deliveries still get marked below so they are not resent.
		o.log.Error("notify apartments", "recipient", r.ID, "error", err)
	}
	if markErr := o.engine.MarkDelivered(ctx, r, model.FullApartment, delivered); markErr != nil {
		o.log.Error("mark delivered", "recipient", r.ID, "error", markErr)
	}
}

func (o *Orchestrator) notifyRoomShares(ctx context.Context, r model.Recipient, candidates []model.RoomShare, f model.RoomShareFilter) {
	unseen, err := o.engine.UnseenRoomShares(ctx, r, candidates, f)
	if err != nil {
		o.log.Error("select unseen room shares", "recipient", r.ID, "error", err)
		return
	}
	delivered, err := o.notifier.NotifyRoomShares(ctx, r, unseen)
	if err != nil {
		o.log.Error("notify room shares", "recipient", r.ID, "error", err)
	}
	if markErr := o.engine.MarkDelivered(ctx, r, model.RoomSharing, delivered); markErr != nil {
		o.log.Error("mark delivered", "recipient", r.ID, "error", markErr)
	}
}

// orderRecipients puts community filters ahead of user filters, keeping
// relative order otherwise stable.
func orderRecipients(filters []model.Filter) []model.Filter {
	out := make([]model.Filter, len(filters))
	copy(out, filters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Owner.Kind == model.KindCommunity && out[j].Owner.Kind != model.KindCommunity
	})
	return out
}
