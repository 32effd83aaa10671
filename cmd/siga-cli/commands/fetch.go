package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"siga-backend/internal/browser"
	"siga-backend/internal/components/chrono"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var fetchJson bool
var fetchDb string

func init() {
	fetchCmd.Flags().BoolVar(&fetchJson, "json", false, "Print the report as JSON instead of tables.")
	fetchCmd.Flags().StringVar(&fetchDb, "db", "", "Archive the report to a sqlite file or libsql url.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--json] [--db <path|libsql-url>]",
	Short: "Logs in with the configured credentials and prints the student's report.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.User == "" || cfg.Password == "" {
			return fmt.Errorf("%w (set user and password in config.json5 or SIGA_USER and SIGA_PASSWORD)", siga.ErrMissingCredentials)
		}

		tel := telemetry.SlogAPI{}
		scraper := newScraper(browser.NewFactory(browser.Options{}, tel), cfg)
		report, err := scraper.Scrape(ctx, siga.Credentials{User: cfg.User, Password: cfg.Password})
		if err != nil {
			return err
		}

		if fetchJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err = encoder.Encode(report)
			if err != nil {
				return err
			}
		} else {
			renderReport(os.Stdout, report)
		}

		if fetchDb == "" {
			return nil
		}

		db, err := store.Open(fetchDb)
		if err != nil {
			return err
		}
		defer db.Close()

		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return err
		}
		archive, err := store.New(ctx, db, clock, tel)
		if err != nil {
			return err
		}
		id, err := archive.Save(ctx, report)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "archived snapshot %d to %s\n", id, fetchDb)
		return nil
	},
}
