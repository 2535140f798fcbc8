package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/thamani/backend/config"
	httpDelivery "github.com/thamani/backend/internal/delivery/http"
	"github.com/thamani/backend/internal/infrastructure/antibot"
	"github.com/thamani/backend/internal/infrastructure/cache"
	"github.com/thamani/backend/internal/infrastructure/retailers"
	"github.com/thamani/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Thamani Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Retailers: %s", strings.Join(cfg.Scrape.Retailers, ", "))

	// Anti-bot identity rotation, shared by every adapter
	rotator := antibot.NewRotator(antibot.Config{
		MinDelay:          cfg.AntiBot.MinDelay,
		MaxDelay:          cfg.AntiBot.MaxDelay,
		RequestsPerSecond: cfg.AntiBot.RequestsPerSecond,
		Proxies:           cfg.AntiBot.Proxies,
		ExtraUserAgents:   cfg.AntiBot.ExtraUserAgents,
	})
	if len(cfg.AntiBot.Proxies) > 0 {
		log.Printf("Egress proxies configured: %d", len(cfg.AntiBot.Proxies))
	}

	// Retailer adapters
	adapters, err := retailers.FromNames(cfg.Scrape.Retailers, rotator, retailers.Options{
		RequestTimeout:  cfg.Scrape.RequestTimeout,
		DefaultMaxPages: cfg.Scrape.DefaultMaxPages,
	})
	if err != nil {
		log.Fatalf("Failed to build retailer adapters: %v", err)
	}

	// Result cache
	var resultCache *cache.MemoryCache
	if cfg.Cache.Enabled {
		resultCache = cache.NewMemoryCache()
		log.Printf("Result cache enabled, TTL: %s", cfg.Cache.TTL)
	} else {
		log.Printf("Result cache disabled")
	}

	// Usecase layer
	aggregator := usecase.NewAggregator(adapters, cfg.Scrape.AdapterTimeout)
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{
		AssumeInStock: cfg.Normalizer.AssumeInStock,
	})
	matcher := usecase.NewMatcher(usecase.MatcherConfig{
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
		BrandBonus:          cfg.Matching.BrandBonus,
		CategoryBonus:       cfg.Matching.CategoryBonus,
		SpecWeight:          cfg.Matching.SpecWeight,
		PricePenalty:        cfg.Matching.PricePenalty,
		EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
	})

	searchService := usecase.NewSearchService(aggregator, normalizer, matcher, resultCache, usecase.SearchServiceConfig{
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
	})

	log.Printf("Matching: threshold=%.2f, debug=%v",
		cfg.Matching.SimilarityThreshold,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService)

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
