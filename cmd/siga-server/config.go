package main

import (
	"os"
	"time"

	"siga-backend/internal/browser"
	"siga-backend/internal/components/configutil"
	"siga-backend/internal/scrapers/siga"
)

type Config struct {
	Port    int    `json:"port"`
	BaseUrl string `json:"base_url"`
	// bounds a whole /info request: login and every extraction
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	UserAgent             string `json:"user_agent"`
}

func defaultConfig() Config {
	return Config{
		Port:                  3000,
		BaseUrl:               siga.DefaultBaseUrl,
		RequestTimeoutSeconds: 60,
	}
}

// readConfig merges config.json5 (optional) over the defaults and the
// environment over both.
func readConfig() (Config, error) {
	cfg := defaultConfig()

	file, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		if file.Port != 0 {
			cfg.Port = file.Port
		}
		if file.BaseUrl != "" {
			cfg.BaseUrl = file.BaseUrl
		}
		if file.RequestTimeoutSeconds != 0 {
			cfg.RequestTimeoutSeconds = file.RequestTimeoutSeconds
		}
		cfg.UserAgent = file.UserAgent
	}

	err = configutil.OverrideInt(&cfg.Port, "PORT")
	if err != nil {
		return Config{}, err
	}
	configutil.OverrideString(&cfg.BaseUrl, "SIGA_BASE_URL")
	return cfg, nil
}

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) browserOptions() browser.Options {
	return browser.Options{UserAgent: c.UserAgent}
}

func (c Config) scraperOptions() siga.Options {
	return siga.Options{BaseUrl: c.BaseUrl}
}
