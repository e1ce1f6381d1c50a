package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tariff-radar/internal/aggregate"
	"github.com/sells-group/tariff-radar/internal/cache"
	"github.com/sells-group/tariff-radar/internal/model"
	"github.com/sells-group/tariff-radar/internal/rates"
	"github.com/sells-group/tariff-radar/pkg/comtrade"
	"github.com/sells-group/tariff-radar/pkg/fedreg"
)

func testEnv(t *testing.T) *radarEnv {
	t.Helper()

	trade := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"primaryValue":1000000}]}`))
	}))
	t.Cleanup(trade.Close)

	news := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"results":[{"title":"Notice of Action","publication_date":"2026-08-20","html_url":"https://example.gov/doc/1","type":"Notice","document_number":"2026-1"}]}`))
	}))
	t.Cleanup(news.Close)

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	agg := aggregate.New(aggregate.Config{
		Trade: comtrade.NewClient(comtrade.WithBaseURL(trade.URL)),
		News:  fedreg.NewClient(fedreg.WithBaseURL(news.URL)),
		Cache: store,
	})

	return &radarEnv{
		Agg:   agg,
		Calc:  rates.NewCalculator(nil),
		Cache: store,
	}
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRouter_Refresh(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res aggregate.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, model.StateSuccess, res.State)
	assert.Equal(t, 10.0, res.Record.Reciprocal)
	assert.False(t, res.Record.IsCached)
}

func TestRouter_TariffFallsBackToSnapshot(t *testing.T) {
	// Cold cache: GET /api/tariff serves the static snapshot view.
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tariff")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view model.TariffView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.True(t, view.IsCached)
	assert.Equal(t, "45-50%", view.EffectiveTotal)
	assert.Contains(t, view.CacheNote, "January 27, 2026")
}

func TestRouter_HTSBreakdown(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tariff/hts")
	require.NoError(t, err)
	defer resp.Body.Close()

	var lines []model.HTSLine
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lines))
	require.Len(t, lines, 5)
	assert.Equal(t, "4407.91-99", lines[2].Code)
	assert.Equal(t, 47.5, lines[2].Total)
}

func TestRouter_Scenarios(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/scenarios")
	require.NoError(t, err)
	defer resp.Body.Close()

	var scenarios []model.Scenario
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scenarios))
	require.Len(t, scenarios, 3)

	total := 0
	for _, s := range scenarios {
		total += s.Probability
	}
	assert.Equal(t, 100, total)
}

func TestRouter_Impact(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	body := `{"revenue":45,"export_pct":35,"china_pct":60,"headcount":185}`
	resp, err := http.Post(srv.URL+"/api/impact", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var imp model.CompanyImpact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&imp))
	assert.InDelta(t, 9.45, imp.ChinaRevenue, 1e-9)
	assert.Equal(t, 35, imp.JobsAtRisk)
	assert.Equal(t, 10, imp.ExpectedJobs)
}

func TestRouter_ImpactRejectsBadInput(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"negative revenue", `{"revenue":-1}`, http.StatusUnprocessableEntity},
		{"pct out of range", `{"revenue":10,"export_pct":150}`, http.StatusUnprocessableEntity},
		{"malformed json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/impact", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestRouter_News(t *testing.T) {
	srv := httptest.NewServer(newRouter(testEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/news")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []model.NewsItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "Notice of Action", items[0].Title)
	assert.Equal(t, "Federal Register", items[0].Source)
}
