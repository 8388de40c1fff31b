package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/excel-to-json/backend/internal/api"
	"github.com/excel-to-json/backend/internal/config"
	"github.com/excel-to-json/backend/internal/convert"
	"github.com/excel-to-json/backend/internal/history"
	"github.com/excel-to-json/backend/internal/notify"
	"github.com/excel-to-json/backend/internal/session"
	"github.com/excel-to-json/backend/internal/source"
	"github.com/excel-to-json/backend/internal/storage"
	"github.com/excel-to-json/backend/internal/web"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "ExcelToJSON.exe.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (page built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Initialize storage for staged source files
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Outbound HTTP client shared by the fetcher and the conversion client
	httpClient := &http.Client{Timeout: cfg.GetRequestTimeout()}

	rules := make([]source.Rule, 0, len(cfg.Sources.Rules))
	for _, r := range cfg.Sources.Rules {
		rules = append(rules, source.Rule{Marker: r.Marker, Extension: r.Extension})
	}

	hub := notify.NewHub(cfg.Sessions.NotificationBuffer)

	deps := session.Deps{
		Store:      fileStore,
		Converter:  convert.NewClient(cfg.GetBackendURL(), httpClient),
		Fetcher:    source.NewFetcher(httpClient),
		Classifier: source.NewClassifier(cfg.Sources.PathIndex, rules),
		Notifier:   hub,
	}

	// Conversion history is optional
	var historyReader api.HistoryReader
	if cfg.Storage.HistoryDatabase != "" {
		historyStore, err := history.Open(cfg.Storage.HistoryDatabase)
		if err != nil {
			fmt.Printf("Warning: conversion history disabled: %v\n", err)
		} else {
			defer historyStore.Close()
			deps.Recorder = historyStore
			historyReader = historyStore
		}
	}

	// Initialize session manager
	sessionMgr := session.NewManager(deps, cfg.Sessions.MaxSessions)
	sessionMgr.SetForgetter(hub)

	// Start background session cleanup
	go func() {
		interval := time.Duration(cfg.Sessions.CleanupIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessionMgr.CleanupOldSessions(time.Duration(cfg.Sessions.SessionTimeoutMinutes) * time.Minute); n > 0 {
				fmt.Printf("[Cleanup] Removed %d idle sessions\n", n)
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true

	api.SetShowErrorDetails(!strings.EqualFold(cfg.Backend.Mode, config.ModeProduction))
	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   splitOrigins(cfg.Server.AllowOrigins),
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		Timeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		SessionMgr: sessionMgr,
		Hub:        hub,
		History:    historyReader,
		Picker: api.PickerConfig{
			Accept:     cfg.Picker.AllowedFileTypes,
			MediaTypes: cfg.GetAllowedFileTypes(),
		},
		BackendURL: cfg.GetBackendURL(),
		Version:    Version,
	})
	api.RegisterRoutes(e, handlers)

	// Register embedded page if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded page from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	historyState := "disabled"
	if historyReader != nil {
		historyState = cfg.Storage.HistoryDatabase
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Excel to JSON Converter                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", strings.ToUpper(cfg.Backend.Mode))
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.GetBackendURL())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  History:   %-46s║\n", historyState)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
