package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tariff-radar/internal/rates"
)

var (
	impactRevenue   float64
	impactExportPct float64
	impactChinaPct  float64
	impactHeadcount int
	impactJSON      bool
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Project revenue and jobs exposure for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		imp, err := rates.CompanyImpact(impactRevenue, impactExportPct, impactChinaPct, impactHeadcount)
		if err != nil {
			return eris.Wrap(err, "impact")
		}

		if impactJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(imp), "impact: encode")
		}

		fmt.Printf("Inputs: $%.1fM revenue, %.0f%% export, %.0f%% to China, %d employees\n\n",
			imp.Revenue, imp.ExportPct, imp.ChinaPct, imp.Headcount)
		fmt.Printf("China-bound revenue:   $%.2fM\n", imp.ChinaRevenue)
		fmt.Printf("Revenue at risk:       $%.3fM\n", imp.RevenueAtRisk)
		fmt.Printf("Expected revenue:      $%.3fM\n", imp.ExpectedRevenue)
		fmt.Printf("Jobs at risk:          %d\n", imp.JobsAtRisk)
		fmt.Printf("Expected jobs lost:    %d\n", imp.ExpectedJobs)
		return nil
	},
}

func init() {
	impactCmd.Flags().Float64Var(&impactRevenue, "revenue", 0, "annual revenue in $M (required)")
	impactCmd.Flags().Float64Var(&impactExportPct, "export-pct", 0, "share of revenue from exports, 0-100")
	impactCmd.Flags().Float64Var(&impactChinaPct, "china-pct", 0, "share of exports bound for China, 0-100")
	impactCmd.Flags().IntVar(&impactHeadcount, "headcount", 0, "number of employees")
	impactCmd.Flags().BoolVar(&impactJSON, "json", false, "emit the projection as JSON")
	_ = impactCmd.MarkFlagRequired("revenue")
	rootCmd.AddCommand(impactCmd)
}
