package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var scenariosJSON bool

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Print the probability-weighted policy scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		scenarios := env.Calc.Scenarios()

		if scenariosJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(scenarios), "scenarios: encode")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SCENARIO\tPROB\tPRICE\tVOLUME\tJOBS")
		_, _ = fmt.Fprintln(w, "--------\t----\t-----\t------\t----")
		for _, s := range scenarios {
			_, _ = fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\t%s\n",
				s.Name, s.Probability, s.PriceImpact, s.VolumeImpact, s.JobsImpact)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "scenarios: flush")
		}

		for _, s := range scenarios {
			fmt.Printf("\n%s (%d%%): %s\n", s.Name, s.Probability, s.Description)
		}
		return nil
	},
}

func init() {
	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "emit the scenarios as JSON")
	rootCmd.AddCommand(scenariosCmd)
}
