package commands

import (
	"context"
	"fmt"
	"os"

	"siga-backend/internal/components/configutil"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "siga-cli",
	Short: "siga-cli scrapes a student's SIGA profile, attendance and grades.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		return configutil.LoadEnv()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	User     string `json:"user"`
	Password string `json:"password"`
	BaseUrl  string `json:"base_url"`
}

// readConfig reads config.json5 when present, SIGA_USER, SIGA_PASSWORD and
// SIGA_BASE_URL override it.
func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	configutil.OverrideString(&cfg.User, "SIGA_USER")
	configutil.OverrideString(&cfg.Password, "SIGA_PASSWORD")
	configutil.OverrideString(&cfg.BaseUrl, "SIGA_BASE_URL")
	return cfg, nil
}

func newScraper(pages siga.PageFactory, cfg Config) siga.Scraper {
	return siga.NewScraper(pages, siga.Options{BaseUrl: cfg.BaseUrl}, telemetry.SlogAPI{})
}
