package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tariff-radar/internal/cache"
	"github.com/sells-group/tariff-radar/internal/rates"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache freshness, breaker states, and monitoring counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		now := time.Now().UTC()
		type statusReport struct {
			CacheFresh   bool              `json:"cache_fresh"`
			CachedAt     *time.Time        `json:"cached_at,omitempty"`
			DaysToExpiry int               `json:"days_to_reciprocal_expiry"`
			Breakers     map[string]string `json:"breakers"`
			Metrics      any               `json:"metrics"`
		}

		breakers := make(map[string]string)
		for name, state := range env.Agg.Breakers().States() {
			breakers[name] = state.String()
		}

		rep := statusReport{
			DaysToExpiry: rates.DaysUntil(rates.ReciprocalExpiry, now),
			Breakers:     breakers,
			Metrics:      env.Agg.Events().Snapshot(),
		}

		_, cachedAt, err := env.Cache.Get(cmd.Context())
		switch {
		case err == nil:
			rep.CacheFresh = true
			rep.CachedAt = &cachedAt
		case errors.Is(err, cache.ErrNoValidEntry):
			// cold cache, nothing to report
		default:
			return eris.Wrap(err, "status: read cache")
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(rep), "status: encode")
		}

		if rep.CacheFresh {
			fmt.Printf("Cache: fresh (written %s)\n", rep.CachedAt.Format(time.RFC1123))
		} else {
			fmt.Println("Cache: empty or expired")
		}
		fmt.Printf("Days until reciprocal-rate expiry: %d\n\n", rep.DaysToExpiry)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "BREAKER\tSTATE")
		for name, state := range rep.Breakers {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", name, state)
		}
		return eris.Wrap(w.Flush(), "status: flush")
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(statusCmd)
}
