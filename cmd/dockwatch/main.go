package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"dockwatch.cycleshare.org/internal/app"
	"dockwatch.cycleshare.org/internal/config"
	"dockwatch.cycleshare.org/internal/prefs"
	"dockwatch.cycleshare.org/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		port      = flag.Int("port", 4000, "API server port")
		env       = flag.String("env", "development", "Environment (development|staging|production)")
		prefsFile = flag.String("prefs-file", "prefs.json", "Path to the preference store file")

		configFile = flag.String("config-file", "", "Path to a local JSON configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON configuration file")
	)

	flag.Parse()

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	report.SetupSentry()
	defer report.FlushSentry()
	report.ConfigureScope(*env, version)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	client := app.NewPooledClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		settings config.Settings
		err      error
	)
	if *configFile != "" {
		settings, err = config.LoadSettingsFromFile(*configFile)
	} else {
		settings, err = config.LoadSettingsFromURL(ctx, client, *configURL, configAuthUser, configAuthPass, 3)
	}
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	prefsStore, err := prefs.NewFileStore(*prefsFile)
	if err != nil {
		logger.Error("Failed to open preference store", "path", *prefsFile, "error", err)
		os.Exit(1)
	}

	application := app.New(config.NewConfig(*port, *env, settings), logger, client, prefsStore, version)

	go application.Hub.Run(ctx)
	application.StartDockPolling(ctx)

	// If a remote URL is specified, refresh the settings every minute.
	if *configURL != "" {
		go application.ConfigService.RefreshSettings(ctx, *configURL, configAuthUser, configAuthPass, time.Minute, 3)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("starting server", "addr", srv.Addr, "env", *env)
	err = srv.ListenAndServe()
	report.ReportError(err, sentry.LevelFatal)
	report.FlushSentry()
	logger.Error(err.Error())
	os.Exit(1)
}
