package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var newsJSON bool

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch recent tariff-related regulatory notices",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := env.Agg.News(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "news")
		}

		if newsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(items), "news: encode")
		}

		if len(items) == 0 {
			fmt.Println("No recent notices found.")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%s  %s\n", it.Date, it.Title)
			if it.Summary != "" && it.Summary != it.Title {
				fmt.Printf("    %s\n", it.Summary)
			}
			if it.URL != "" {
				fmt.Printf("    %s\n", it.URL)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().BoolVar(&newsJSON, "json", false, "emit notices as JSON")
	rootCmd.AddCommand(newsCmd)
}
