package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricewatch/backend/config"
	httpDelivery "github.com/pricewatch/backend/internal/delivery/http"
	"github.com/pricewatch/backend/internal/infrastructure/arfigyelo"
	"github.com/pricewatch/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceWatch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	datasetClient := arfigyelo.NewClient(arfigyelo.Config{
		URL:       cfg.Dataset.URL,
		CacheDir:  cfg.Dataset.CacheDir,
		LocalFile: cfg.Dataset.LocalFile,
		Timeout:   cfg.Dataset.Timeout,
	})

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		datasetClient.SetDebug(true)
		log.Printf("Dataset client debug mode enabled")
	}

	if cfg.Dataset.LocalFile != "" {
		log.Printf("Dataset source: local file %s", cfg.Dataset.LocalFile)
	} else {
		log.Printf("Dataset source: %s", cfg.Dataset.URL)
	}

	// Initialize usecase layer
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{
		ExtraNoiseTokens: cfg.Matching.NoiseTokens,
	})
	builder := usecase.NewIndexBuilder(normalizer, cfg.Matching.EnableDebugLogging)
	controller := usecase.NewRefreshController(datasetClient, builder, cfg.Matching.EnableDebugLogging)

	matcher, err := usecase.NewMatcher(normalizer, usecase.MatcherConfig{
		MinScore:           cfg.Matching.MinScore,
		Workers:            cfg.Matching.Workers,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})
	if err != nil {
		log.Fatalf("Failed to create matcher: %v", err)
	}
	defer matcher.Release()

	log.Printf("Matching: min score=%.0f, default limit=%d, debug=%v",
		cfg.Matching.MinScore,
		cfg.Matching.DefaultLimit,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(controller, matcher, cfg.Matching.DefaultLimit)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
