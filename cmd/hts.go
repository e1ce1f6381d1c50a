package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tariff-radar/internal/aggregate"
	"github.com/sells-group/tariff-radar/internal/model"
)

var htsJSON bool

var htsCmd = &cobra.Command{
	Use:   "hts",
	Short: "Print the per-HTS-code tariff breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		rec := currentRecord(cmd.Context(), env)
		lines := env.Calc.HTSBreakdown(rec)

		if htsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(lines), "hts: encode")
		}

		formatHTS(os.Stdout, lines)
		return nil
	},
}

func init() {
	htsCmd.Flags().BoolVar(&htsJSON, "json", false, "emit the breakdown as JSON")
	rootCmd.AddCommand(htsCmd)
}

// currentRecord returns the cached record when a fresh one exists, otherwise
// the static snapshot. Derivation commands never hit the network.
func currentRecord(ctx context.Context, env *radarEnv) *model.TariffRecord {
	rec, _, err := env.Cache.Get(ctx)
	if err != nil {
		return aggregate.StaticSnapshot()
	}
	return rec
}
