package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/viper"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/config"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/discovery"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/settings"
)

// app bundles the wired components every command needs.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *settings.Store
	registry  *provider.Registry
	discovery *discovery.Service
	router    *router.Router
}

// newApp initializes logging, loads configuration and the settings store,
// seeds store credentials from the environment, and wires the provider
// stack.
func newApp() (*app, error) {
	log, err := logger.New(&logger.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if settingsFile := viper.GetString("settings_file"); settingsFile != "" {
		cfg.SettingsFile = settingsFile
	}

	store, err := settings.LoadOrCreate(cfg.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store %s: %w", cfg.SettingsFile, err)
	}
	if err := seedCredentials(store, cfg.Keys); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	endpoints := provider.Endpoints{
		OpenAI:       cfg.Endpoints.OpenAI,
		Gemini:       cfg.Endpoints.Gemini,
		Claude:       cfg.Endpoints.Claude,
		GoogleVision: cfg.Endpoints.GoogleVision,
	}

	registry := provider.NewRegistry(endpoints, httpClient, log)
	disco := discovery.NewService(discovery.Config{
		Endpoints:     endpoints,
		GeminiDocsURL: cfg.Endpoints.GeminiDocsURL,
		HTTPClient:    httpClient,
		Logger:        log,
	})
	rt := router.New(router.Config{
		Registry:  registry,
		Discovery: disco,
		Store:     store,
		Logger:    log,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		registry:  registry,
		discovery: disco,
		router:    rt,
	}, nil
}

// seedCredentials copies environment-provided API keys into the store.
// Keys already in the store win; the store is the source of truth.
func seedCredentials(store *settings.Store, keys config.KeyConfig) error {
	seeded := false
	for vendor, key := range map[provider.Vendor]string{
		provider.VendorOpenAI: keys.OpenAI,
		provider.VendorGemini: keys.Gemini,
		provider.VendorClaude: keys.Claude,
		provider.VendorGoogle: keys.GoogleVision,
	} {
		if key != "" && store.Credential(vendor) == "" {
			store.SetCredential(vendor, key)
			seeded = true
		}
	}
	if !seeded {
		return nil
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to persist seeded credentials: %w", err)
	}
	return nil
}

// parseVendor resolves a vendor name argument.
func parseVendor(name string) (provider.Vendor, error) {
	for _, v := range provider.Vendors() {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown vendor %q, must be one of: openai, gemini, claude, google", name)
}

// parseProviderID resolves a provider identifier argument.
func parseProviderID(name string) (provider.ID, error) {
	id := provider.ID(name)
	if !id.Valid() {
		return "", fmt.Errorf("unknown provider %q", name)
	}
	return id, nil
}
