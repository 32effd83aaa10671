package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"siga-backend/internal/browser"
	"siga-backend/internal/components/configutil"
	"siga-backend/internal/components/serviceutil"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/internal/service"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(*verbose)
	err := configutil.LoadEnv()
	if err != nil {
		serviceutil.Fatal("load env", err)
	}

	tel := telemetry.SlogAPI{}
	InitTelemetry(ctx, tel)

	cfg, err := readConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	slog.Info("configured", "base_url", cfg.BaseUrl, "port", cfg.Port)

	scraper := siga.NewScraper(
		browser.NewFactory(cfg.browserOptions(), tel),
		cfg.scraperOptions(),
		tel,
	)
	svc := service.NewService(scraper, cfg.requestTimeout(), tel)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, svc.Router(), cfg.requestTimeout())
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}

func InitTelemetry(ctx context.Context, tel telemetry.API) {
	providers, err := telemetry.SetupFromEnv(ctx, "siga-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("telemetry shutdown", "err", err.Error())
		}
	}()
	telemetry.InstrumentPerfStats(ctx, tel)
}
