package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enrichment/internal/enrich"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/provider"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <email>",
	Short: "Enrich and score a single lead",
	Long:  "Runs every applicable provider against one lead and prints the scored result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		unit, err := initUnit()
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		company, _ := cmd.Flags().GetString("company")
		domain, _ := cmd.Flags().GetString("domain")
		industry, _ := cmd.Flags().GetString("industry")

		lead := model.Lead{
			Name:         name,
			Email:        args[0],
			Company:      company,
			Domain:       domain,
			IndustryHint: industry,
		}

		result := unit.Enrich(cmd.Context(), lead)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func initUnit() (*enrich.Unit, error) {
	scoring, err := enrich.LoadScoring(cfg.Enrich.ScoringPath)
	if err != nil {
		return nil, eris.Wrap(err, "load scoring config")
	}
	return enrich.NewUnit(
		provider.DefaultRegistry(),
		scoring,
		cfg.Enrich.ProviderTimeout(),
		cfg.Enrich.SlowProviderTimeout(),
	), nil
}

func init() {
	enrichCmd.Flags().String("name", "", "lead contact name")
	enrichCmd.Flags().String("company", "", "company name")
	enrichCmd.Flags().String("domain", "", "company domain (overrides the email domain)")
	enrichCmd.Flags().String("industry", "", "industry hint")
	rootCmd.AddCommand(enrichCmd)
}
