package aggregate

import (
	"time"

	"github.com/sells-group/tariff-radar/internal/model"
)

// snapshotDate is when the static fallback rates were last verified by hand.
var snapshotDate = time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)

// StaticSnapshot returns the hardcoded last-known-good record, served only
// when every live source fails and the cache has nothing valid.
func StaticSnapshot() *model.TariffRecord {
	return &model.TariffRecord{
		Reciprocal:  10,
		Fentanyl:    10,
		Section301:  "25-30",
		Section232:  0,
		LastUpdated: snapshotDate,
		Sources: []string{
			model.SourceUSITCCached,
			model.SourceFedRegCached,
			model.SourceUSTRCached,
		},
		IsCached:  true,
		CacheNote: "Live data sources are unavailable. Showing last verified rates from January 27, 2026.",
	}
}
