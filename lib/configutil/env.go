package configutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envDatabaseUrl = "DATABASE_URL"
	envProxy       = "HLTV_PROXY"
	envHeadless    = "HLTV_HEADLESS"
	envTimezone    = "HLTV_TIMEZONE"
	envMaxMatches  = "HLTV_MAX_MATCHES"
)

// ApplyEnv overrides settings from environment variables, a .env file in the
// working directory is loaded first if it exists.
//
// DATABASE_URL     -> database.dsn
// HLTV_PROXY       -> browser.proxy.proxies (comma separated), enables the proxy
// HLTV_HEADLESS    -> browser.headless
// HLTV_TIMEZONE    -> scraping.timezone
// HLTV_MAX_MATCHES -> scraping.max_matches
func ApplyEnv(settings *Settings) error {
	// a missing .env is fine
	_ = godotenv.Load()

	if dsn := os.Getenv(envDatabaseUrl); dsn != "" {
		settings.Set("database.dsn", dsn)
	}
	if proxies := os.Getenv(envProxy); proxies != "" {
		var list []any
		for _, p := range strings.Split(proxies, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				list = append(list, p)
			}
		}
		settings.Set("browser.proxy.proxies", list)
		settings.Set("browser.proxy.enabled", true)
	}
	if headless := os.Getenv(envHeadless); headless != "" {
		value, err := strconv.ParseBool(headless)
		if err != nil {
			return fmt.Errorf("%s: %w", envHeadless, err)
		}
		settings.Set("browser.headless", value)
	}
	if zone := os.Getenv(envTimezone); zone != "" {
		settings.Set("scraping.timezone", zone)
	}
	if max := os.Getenv(envMaxMatches); max != "" {
		value, err := strconv.Atoi(max)
		if err != nil {
			return fmt.Errorf("%s: %w", envMaxMatches, err)
		}
		settings.Set("scraping.max_matches", float64(value))
	}
	return nil
}
