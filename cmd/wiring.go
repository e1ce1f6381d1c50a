package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-radar/internal/aggregate"
	"github.com/sells-group/tariff-radar/internal/cache"
	"github.com/sells-group/tariff-radar/internal/fetcher"
	"github.com/sells-group/tariff-radar/internal/rates"
	"github.com/sells-group/tariff-radar/internal/resilience"
	"github.com/sells-group/tariff-radar/pkg/comtrade"
	"github.com/sells-group/tariff-radar/pkg/fedreg"
	"github.com/sells-group/tariff-radar/pkg/fred"
)

// radarEnv bundles the wired collaborators for a command invocation.
type radarEnv struct {
	Agg   *aggregate.Aggregator
	Calc  *rates.Calculator
	Cache *cache.Store
}

func (e *radarEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initRadar builds the aggregator stack from the loaded config: shared
// rate-limited HTTP client, the three source clients, the snapshot cache,
// and the policy table.
func initRadar() (*radarEnv, error) {
	httpClient := fetcher.NewClient(fetcher.Options{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
	})

	policy := rates.DefaultPolicy()
	if cfg.Policy.Path != "" {
		p, err := rates.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return nil, eris.Wrap(err, "init: load policy")
		}
		policy = p
	}

	store, err := cache.Open(cfg.Cache.Path, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	if err != nil {
		return nil, eris.Wrap(err, "init: open cache")
	}

	aggCfg := aggregate.Config{
		Trade: comtrade.NewClient(
			comtrade.WithBaseURL(cfg.Comtrade.BaseURL),
			comtrade.WithHTTPClient(httpClient),
		),
		News: fedreg.NewClient(
			fedreg.WithBaseURL(cfg.FedReg.BaseURL),
			fedreg.WithHTTPClient(httpClient),
		),
		Cache:  store,
		Policy: policy,
		Breakers: resilience.NewBreakers(
			cfg.Breaker.FailureThreshold,
			time.Duration(cfg.Breaker.ResetTimeoutSecs)*time.Second,
		),
	}

	if cfg.FRED.Key != "" {
		aggCfg.Econ = fred.NewClient(cfg.FRED.Key,
			fred.WithBaseURL(cfg.FRED.BaseURL),
			fred.WithHTTPClient(httpClient),
		)
		aggCfg.EconSeries = cfg.FRED.Series
	} else {
		zap.L().Debug("no FRED key provisioned, econ source disabled")
	}

	return &radarEnv{
		Agg:   aggregate.New(aggCfg),
		Calc:  rates.NewCalculator(policy),
		Cache: store,
	}, nil
}
