package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tariff-radar/internal/model"
	"github.com/sells-group/tariff-radar/internal/rates"
)

var refreshJSON bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one aggregation cycle and print the current tariff status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Agg.Refresh(ctx)
		if err != nil {
			return eris.Wrap(err, "refresh")
		}

		view, err := rates.View(res.Record)
		if err != nil {
			return eris.Wrap(err, "refresh: derive view")
		}

		if refreshJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(res), "refresh: encode")
		}

		formatView(os.Stdout, view, res.State)
		formatHTS(os.Stdout, env.Calc.HTSBreakdown(res.Record))
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "emit the raw result as JSON")
	rootCmd.AddCommand(refreshCmd)
}

func formatView(out io.Writer, v *model.TariffView, state model.AggregationState) {
	fmt.Fprintf(out, "Effective tariff: %s (%s)\n", v.EffectiveTotal, state)
	fmt.Fprintf(out, "  Reciprocal %v%% + Fentanyl %v%% + Section 301 %v-%v%% + Section 232 %v%%\n",
		v.Reciprocal, v.Fentanyl, v.Section301.Low, v.Section301.High, v.Section232)
	fmt.Fprintf(out, "Last updated: %s\n", v.LastUpdated.Format(time.RFC1123))
	fmt.Fprintf(out, "Sources: %v\n", v.Sources)

	if v.IsCached && v.CacheNote != "" {
		fmt.Fprintf(out, "WARNING: %s\n", v.CacheNote)
	}

	days := rates.DaysUntil(rates.ReciprocalExpiry, time.Now().UTC())
	fmt.Fprintf(out, "Days until reciprocal-rate expiry (Nov 10, 2026): %d\n", days)
}

func formatHTS(out io.Writer, lines []model.HTSLine) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "HTS CODE\tDESCRIPTION\tRECIP\tFENT\t301\tTOTAL")
	_, _ = fmt.Fprintln(w, "--------\t-----------\t-----\t----\t---\t-----")
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%v%%\t%v%%\t%v%%\t%v%%\n",
			l.Code, l.Description, l.Reciprocal, l.Fentanyl, l.Section301, l.Total)
	}
	_ = w.Flush()
}
