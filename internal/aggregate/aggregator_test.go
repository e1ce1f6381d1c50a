package aggregate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tariff-radar/internal/cache"
	"github.com/sells-group/tariff-radar/internal/model"
	"github.com/sells-group/tariff-radar/pkg/comtrade"
	"github.com/sells-group/tariff-radar/pkg/fedreg"
	"github.com/sells-group/tariff-radar/pkg/fred"
)

const (
	tradeBody = `{"count": 1, "data": [{"cmdCode": "4407", "primaryValue": 120000000}]}`
	newsBody  = `{"count": 1, "results": [{"title": "Section 301 Review", "publication_date": "2026-01-20", "abstract": "USTR review of actions.", "html_url": "https://example.gov/doc1"}]}`
	econBody  = `{"observations": [{"date": "2026-01-20", "value": "312.4"}]}`
)

func okServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestAggregator(t *testing.T, tradeURL, newsURL, econURL string) *Aggregator {
	t.Helper()
	cfg := Config{
		Trade: comtrade.NewClient(comtrade.WithBaseURL(tradeURL)),
		News:  fedreg.NewClient(fedreg.WithBaseURL(newsURL)),
		Cache: testCache(t),
	}
	if econURL != "" {
		cfg.Econ = fred.NewClient("test-key", fred.WithBaseURL(econURL))
		cfg.EconSeries = "WPU0812"
	}
	return New(cfg)
}

func TestRefresh_AllSourcesSucceed(t *testing.T) {
	agg := newTestAggregator(t,
		okServer(t, tradeBody).URL,
		okServer(t, newsBody).URL,
		okServer(t, econBody).URL,
	)

	res, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StateSuccess, res.State)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, model.StateIdle, agg.State())

	rec := res.Record
	assert.ElementsMatch(t,
		[]string{model.SourceComtrade, model.SourceFederalReg, model.SourceFRED},
		rec.Sources,
	)
	assert.False(t, rec.IsCached)
	assert.NotEmpty(t, rec.TradeData)
	require.Len(t, rec.Updates, 1)
	assert.Equal(t, "Section 301 Review", rec.Updates[0].Title)
	assert.Equal(t, "Federal Register", rec.Updates[0].Source)
	require.NotNil(t, rec.Indicator)
	assert.Equal(t, 312.4, rec.Indicator.Value)

	// Live payloads never override the headline rates; those are policy-set.
	assert.Equal(t, 10.0, rec.Reciprocal)
	assert.Equal(t, 10.0, rec.Fentanyl)
	assert.Equal(t, "25-30", rec.Section301)
	assert.Equal(t, 0.0, rec.Section232)

	// The cycle warmed the cache.
	cached, _, err := agg.cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached.IsCached)
}

func TestRefresh_PartialFailureDegrades(t *testing.T) {
	// Regulatory source is down; trade statistics still flow.
	agg := newTestAggregator(t,
		okServer(t, tradeBody).URL,
		failServer(t).URL,
		okServer(t, econBody).URL,
	)

	res, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StateDegraded, res.State)
	assert.Contains(t, res.Record.Sources, model.SourceComtrade)
	assert.NotContains(t, res.Record.Sources, model.SourceFederalReg)
	assert.Empty(t, res.Record.Updates)

	snap := agg.Events().Snapshot()
	assert.Equal(t, 1, snap.SourceFailures[srcNews])
	assert.Zero(t, snap.SourceFailures[srcTrade])
}

func TestRefresh_TotalFailureEmptyCache(t *testing.T) {
	agg := newTestAggregator(t,
		failServer(t).URL,
		failServer(t).URL,
		"",
	)

	// Idempotent: the fixed snapshot comes back every time.
	for range 2 {
		res, err := agg.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, model.StateFailed, res.State)
		rec := res.Record
		assert.True(t, rec.IsCached)
		assert.NotEmpty(t, rec.CacheNote)
		assert.Equal(t, snapshotDate, rec.LastUpdated)
		assert.Equal(t, []string{
			model.SourceUSITCCached,
			model.SourceFedRegCached,
			model.SourceUSTRCached,
		}, rec.Sources)
	}

	snap := agg.Events().Snapshot()
	assert.Equal(t, 2, snap.CacheMisses)
	assert.Equal(t, 2, snap.FallbacksEngaged)
}

func TestRefresh_TotalFailureWarmCache(t *testing.T) {
	trade := okServer(t, tradeBody)
	news := okServer(t, newsBody)
	agg := newTestAggregator(t, trade.URL, news.URL, "")

	// Warm the cache with a live cycle.
	res, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateSuccess, res.State)

	// Kill both sources and refresh again.
	trade.Close()
	news.Close()

	res, err = agg.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StateFailed, res.State)
	rec := res.Record
	assert.True(t, rec.IsCached)
	assert.Contains(t, rec.CacheNote, "cached")
	// Cached record, not the static snapshot.
	assert.Contains(t, rec.Sources, model.SourceComtrade)

	snap := agg.Events().Snapshot()
	assert.Equal(t, 1, snap.CacheHits)
	assert.Zero(t, snap.FallbacksEngaged)
}

func TestRefresh_NoEconConfigured(t *testing.T) {
	agg := newTestAggregator(t,
		okServer(t, tradeBody).URL,
		okServer(t, newsBody).URL,
		"",
	)

	res, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	// Absent econ source is not a failure: both configured sources answered.
	assert.Equal(t, model.StateSuccess, res.State)
	assert.NotContains(t, res.Record.Sources, model.SourceFRED)
	assert.Nil(t, res.Record.Indicator)
}

func TestRefresh_CancelledContext(t *testing.T) {
	agg := newTestAggregator(t,
		failServer(t).URL,
		failServer(t).URL,
		"",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh cancelled")
}

func TestNews_MapsAndDeduplicates(t *testing.T) {
	// Same document comes back for every search term; it must appear once.
	srv := okServer(t, newsBody)
	agg := newTestAggregator(t, okServer(t, tradeBody).URL, srv.URL, "")

	items, err := agg.News(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Section 301 Review", items[0].Title)
	assert.Equal(t, "2026-01-20", items[0].Date)
	assert.Equal(t, "USTR review of actions.", items[0].Summary)
	assert.Equal(t, "https://example.gov/doc1", items[0].URL)
}

func TestNews_SummaryFallsBackToTitle(t *testing.T) {
	body := `{"count": 1, "results": [{"title": "Notice Only", "publication_date": "2026-01-05", "abstract": "", "html_url": "https://example.gov/doc2"}]}`
	agg := newTestAggregator(t, okServer(t, tradeBody).URL, okServer(t, body).URL, "")

	items, err := agg.News(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Notice Only", items[0].Summary)
}

func TestStaticSnapshot_Invariants(t *testing.T) {
	snap := StaticSnapshot()
	require.NoError(t, snap.Validate())
	assert.True(t, snap.IsCached)
	assert.NotEmpty(t, snap.CacheNote)
	assert.Equal(t, time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC), snap.LastUpdated)
}
