// Package aggregate orchestrates the tariff refresh cycle: concurrent
// source fetches, record composition, caching, and the fallback chain.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tariff-radar/internal/model"
	"github.com/sells-group/tariff-radar/internal/monitoring"
	"github.com/sells-group/tariff-radar/internal/rates"
	"github.com/sells-group/tariff-radar/internal/resilience"
	"github.com/sells-group/tariff-radar/pkg/comtrade"
	"github.com/sells-group/tariff-radar/pkg/fedreg"
	"github.com/sells-group/tariff-radar/pkg/fred"
)

// Breaker source names.
const (
	srcTrade = "comtrade"
	srcNews  = "fedreg"
	srcEcon  = "fred"
)

// SnapshotStore is the cache surface the aggregator needs.
type SnapshotStore interface {
	Put(ctx context.Context, rec *model.TariffRecord) error
	Get(ctx context.Context) (*model.TariffRecord, time.Time, error)
}

// Config wires an Aggregator. Trade and News are required; Econ is
// optional (it needs a provisioned API key).
type Config struct {
	Trade    comtrade.Client
	News     fedreg.Client
	Econ     fred.Client
	Cache    SnapshotStore
	Events   *monitoring.Events
	Breakers *resilience.Breakers
	Policy   *rates.Policy

	// EconSeries is the FRED series queried for market context.
	EconSeries string
}

// Result is the outcome of one refresh cycle.
type Result struct {
	RunID  string                 `json:"run_id"`
	State  model.AggregationState `json:"state"`
	Record *model.TariffRecord    `json:"record"`
}

// Aggregator runs refresh cycles. Construct one per process and pass it by
// reference; it holds no package-level state. Overlapping Refresh calls are
// not guarded against internally: callers serialize (the CLI is naturally
// serial, the HTTP layer holds a mutex around refresh).
type Aggregator struct {
	trade    comtrade.Client
	news     fedreg.Client
	econ     fred.Client
	cache    SnapshotStore
	events   *monitoring.Events
	breakers *resilience.Breakers
	policy   *rates.Policy

	econSeries string
	state      model.AggregationState
	now        func() time.Time
}

// New creates an aggregator from the config, filling unset collaborators
// with defaults.
func New(cfg Config) *Aggregator {
	if cfg.Events == nil {
		cfg.Events = monitoring.NewEvents()
	}
	if cfg.Breakers == nil {
		cfg.Breakers = resilience.NewBreakers(3, 30*time.Second)
	}
	if cfg.Policy == nil {
		cfg.Policy = rates.DefaultPolicy()
	}
	return &Aggregator{
		trade:      cfg.Trade,
		news:       cfg.News,
		econ:       cfg.Econ,
		cache:      cfg.Cache,
		events:     cfg.Events,
		breakers:   cfg.Breakers,
		policy:     cfg.Policy,
		econSeries: cfg.EconSeries,
		state:      model.StateIdle,
		now:        time.Now,
	}
}

// WithNow injects a clock for testing.
func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// State reports the aggregator's position in the cycle.
func (a *Aggregator) State() model.AggregationState {
	return a.state
}

// Events exposes the degradation recorder for status surfaces.
func (a *Aggregator) Events() *monitoring.Events {
	return a.events
}

// Breakers exposes the per-source circuit breakers for status surfaces.
func (a *Aggregator) Breakers() *resilience.Breakers {
	return a.breakers
}

// Refresh runs one aggregation cycle. The three sources are fetched
// concurrently and awaited independently: a slow or failing source never
// blocks or cancels its siblings. The only error return is context
// cancellation; every data-level failure degrades to cache or the static
// snapshot instead.
//
// There is no retry loop here. Retry is the caller's move (a manual
// refresh), by design.
func (a *Aggregator) Refresh(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	a.state = model.StateFetching
	a.events.RefreshStarted(runID)

	var (
		tradeData *comtrade.HardwoodTrade
		tradeErr  error

		newsItems []model.NewsItem
		newsErr   error

		econPoint *model.IndicatorPoint
		econErr   error
	)

	// All-settled join: goroutines write into their own slot and always
	// return nil, so errgroup never cancels the shared context.
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tradeData, tradeErr = resilience.ExecuteVal(gCtx, a.breakers.Get(srcTrade),
			func(ctx context.Context) (*comtrade.HardwoodTrade, error) {
				return a.trade.GetUSChinaHardwoodTrade(ctx)
			})
		if tradeErr != nil {
			a.events.SourceFailure(runID, srcTrade, tradeErr)
		}
		return nil
	})

	g.Go(func() error {
		newsItems, newsErr = resilience.ExecuteVal(gCtx, a.breakers.Get(srcNews),
			func(ctx context.Context) ([]model.NewsItem, error) {
				return a.fetchNews(ctx)
			})
		if newsErr != nil {
			a.events.SourceFailure(runID, srcNews, newsErr)
		}
		return nil
	})

	if a.econConfigured() {
		g.Go(func() error {
			var obs *fred.Observation
			obs, econErr = resilience.ExecuteVal(gCtx, a.breakers.Get(srcEcon),
				func(ctx context.Context) (*fred.Observation, error) {
					return a.econ.LatestObservation(ctx, a.econSeries)
				})
			if econErr != nil {
				a.events.SourceFailure(runID, srcEcon, econErr)
			} else {
				econPoint = &model.IndicatorPoint{
					SeriesID: obs.SeriesID,
					Date:     obs.Date,
					Value:    obs.Value,
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		a.state = model.StateIdle
		return nil, eris.Wrap(ctx.Err(), "aggregate: refresh cancelled")
	}

	succeeded, configured := a.outcomes(tradeErr, newsErr, econErr)
	if len(succeeded) == 0 {
		res := a.fallback(ctx, runID)
		a.state = model.StateIdle
		return res, nil
	}

	rec := a.compose(succeeded, tradeData, newsItems, econPoint)
	if err := a.cache.Put(ctx, rec); err != nil {
		a.events.CacheWriteFailure(runID, err)
	}

	state := model.StateDegraded
	if len(succeeded) == configured {
		state = model.StateSuccess
	}
	zap.L().Info("aggregation cycle complete",
		zap.String("run_id", runID),
		zap.String("state", string(state)),
		zap.Strings("sources", rec.Sources),
	)

	a.state = model.StateIdle
	return &Result{RunID: runID, State: state, Record: rec}, nil
}

// News fetches the regulatory update feed on its own, outside a refresh
// cycle.
func (a *Aggregator) News(ctx context.Context) ([]model.NewsItem, error) {
	return a.fetchNews(ctx)
}

func (a *Aggregator) econConfigured() bool {
	return a.econ != nil && a.econSeries != ""
}

// outcomes maps the per-source errors to the provenance labels of the
// sources that responded, plus the number of configured sources.
func (a *Aggregator) outcomes(tradeErr, newsErr, econErr error) ([]string, int) {
	configured := 2
	var succeeded []string
	if tradeErr == nil {
		succeeded = append(succeeded, model.SourceComtrade)
	}
	if newsErr == nil {
		succeeded = append(succeeded, model.SourceFederalReg)
	}
	if a.econConfigured() {
		configured++
		if econErr == nil {
			succeeded = append(succeeded, model.SourceFRED)
		}
	}
	return succeeded, configured
}

// compose builds the record for this cycle. The headline rates come from
// the policy table, never from the live payloads: rates are set by
// proclamation, while the feeds carry volumes and notices. Only provenance
// and the embedded raw payloads vary with live success.
func (a *Aggregator) compose(sources []string, trade *comtrade.HardwoodTrade, news []model.NewsItem, econ *model.IndicatorPoint) *model.TariffRecord {
	rec := &model.TariffRecord{
		Reciprocal:  a.policy.Rates.Reciprocal,
		Fentanyl:    a.policy.Rates.Fentanyl,
		Section301:  a.policy.Rates.Section301,
		Section232:  a.policy.Rates.Section232,
		LastUpdated: a.now().UTC(),
		Sources:     sources,
		Updates:     news,
		Indicator:   econ,
	}

	if trade != nil {
		if raw, err := json.Marshal(trade); err == nil {
			rec.TradeData = raw
		}
	}

	return rec
}

// fallback serves the cached snapshot if one is still valid, else the
// static last-known-good record. Never fails.
func (a *Aggregator) fallback(ctx context.Context, runID string) *Result {
	rec, cachedAt, err := a.cache.Get(ctx)
	if err == nil {
		a.events.CacheHit(runID, cachedAt)
		rec.CacheNote = fmt.Sprintf(
			"Live sources unavailable. Showing data cached %s.",
			cachedAt.UTC().Format("Jan 2, 2006 15:04 MST"),
		)
		return &Result{RunID: runID, State: model.StateFailed, Record: rec}
	}

	a.events.CacheMiss(runID)
	a.events.FallbackEngaged(runID)
	return &Result{RunID: runID, State: model.StateFailed, Record: StaticSnapshot()}
}

// fetchNews runs the standing search terms against the Federal Register
// and flattens the hits into the uniform news shape, deduplicated by URL.
func (a *Aggregator) fetchNews(ctx context.Context) ([]model.NewsItem, error) {
	seen := make(map[string]bool)
	var items []model.NewsItem

	for _, term := range fedreg.DefaultSearchTerms() {
		resp, err := a.news.SearchDocuments(ctx, fedreg.SearchParams{
			Term:    term,
			PerPage: 5,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: search %q", term)
		}

		for _, doc := range resp.Results {
			if seen[doc.HTMLURL] {
				continue
			}
			seen[doc.HTMLURL] = true

			summary := doc.Abstract
			if summary == "" {
				summary = doc.Title
			}
			items = append(items, model.NewsItem{
				Title:   doc.Title,
				Date:    doc.PublicationDate,
				Source:  "Federal Register",
				Summary: summary,
				URL:     doc.HTMLURL,
			})
		}
	}

	return items, nil
}
