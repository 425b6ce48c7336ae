package config

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"dockwatch.cycleshare.org/internal/report"
	"dockwatch.cycleshare.org/internal/utils"
)

// ValidateConfigFlags ensures that exactly one configuration source is
// specified: either a config file "--config-file" or a remote config URL
// "--config-url".
func ValidateConfigFlags(configFile, configURL *string) error {
	if *configFile == "" && *configURL == "" {
		return fmt.Errorf("no configuration provided, either --config-file or --config-url must be specified")
	}
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// refreshSettings periodically fetches the remote settings document and
// applies it to the running config. Errors are logged and reported but the
// loop keeps going; a transient config outage must not take the watcher
// down. Stops when the context is cancelled.
func refreshSettings(ctx context.Context, client *http.Client, configURL, authUser, authPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping settings refresh routine")
			return
		default:
			newSettings, err := loadSettingsFromURL(ctx, client, configURL, authUser, authPass, maxRetries)
			if err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeMap("config_url", configURL),
					Level: sentry.LevelError,
				})
				logger.Error("Failed to refresh remote settings", "error", err)
			} else {
				cfg.UpdateSettings(newSettings)
				logger.Info("Successfully refreshed settings")
			}
			time.Sleep(interval)
		}
	}
}

func loadSettingsFromFile(filePath string) (Settings, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file: %v", err)
	}
	return parseSettings(data)
}

func loadSettingsFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (Settings, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to create request: %v", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to fetch remote config: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Settings{}, fmt.Errorf("remote config returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read remote config: %v", err)
	}

	return parseSettings(data)
}

// parseSettings unmarshals a settings document over the defaults, so a
// partial remote document only overrides what it names.
func parseSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal JSON: %v", err)
	}
	if settings.FeedURL == "" {
		return Settings{}, fmt.Errorf("config is missing feed_url")
	}
	return settings, nil
}
