package main

import (
	"errors"
	"fmt"
	"os"

	"autoscout-evaluator/cli"
	"autoscout-evaluator/config"
	"autoscout-evaluator/scraper/autoscout"
	"autoscout-evaluator/services"
	"autoscout-evaluator/storage"
	"autoscout-evaluator/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("=== AutoScout24.ch Car Offer Evaluator starting ===")
	logger.Info("Config — pages: %d | concurrency: %d | rate: %dms | knots: %d | tolerance: %.2f",
		cfg.PagesToScrape, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.KnotCount, cfg.Tolerance)

	prompter := cli.New(os.Stdin, os.Stdout)
	query, err := prompter.SearchQuery()
	if err != nil {
		logger.Error("Failed to read search parameters: %v", err)
		os.Exit(1)
	}
	offer, err := prompter.Offer()
	if err != nil {
		logger.Error("Failed to read offer parameters: %v", err)
		os.Exit(1)
	}

	scraper := autoscout.New(cfg, logger)
	rawListings, err := scraper.Scrape(query)
	if err != nil {
		logger.Error("AutoScout24 scrape failed: %v", err)
	}

	if len(rawListings) == 0 {
		logger.Error("No listings were scraped. Try different search criteria.")
		os.Exit(1)
	}

	logger.Info("Scraped %d raw listings — writing to CSV...", len(rawListings))

	if csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath); err != nil {
		logger.Warn("Failed to create CSV writer: %v", err)
	} else {
		if err := csvWriter.WriteRaw(rawListings); err != nil {
			logger.Warn("CSV write failed: %v", err)
		} else {
			logger.Info("Raw listings saved to %s", cfg.CSVOutputPath)
		}
		csvWriter.Close()
	}

	cleaner := services.NewCleaner(logger)
	listings := cleaner.Clean(rawListings)

	if len(listings) == 0 {
		logger.Error("No valid data found for analysis. Try different search criteria.")
		os.Exit(1)
	}

	// Storage is best effort: a missing database degrades to an in-memory run.
	if pgWriter, err := storage.NewPostgresWriter(cfg.DSN()); err != nil {
		logger.Warn("PostgreSQL unavailable, analyzing in memory: %v", err)
	} else {
		if err := pgWriter.Write(listings); err != nil {
			logger.Warn("PostgreSQL write failed: %v", err)
		} else {
			logger.Info("Clean listings stored in PostgreSQL (table: car_listings)")
		}
		if dbListings, err := pgWriter.FetchAll(); err != nil {
			logger.Warn("Failed to fetch listings from DB: %v", err)
		} else if len(dbListings) > 0 {
			listings = dbListings
		}
		pgWriter.Close()
	}

	fitter := services.NewFitter(logger)
	curve, err := fitter.Fit(listings, cfg.KnotCount)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientData) {
			logger.Error("Not enough data to fit a price curve: %v", err)
		} else {
			logger.Error("Curve fit failed: %v", err)
		}
		os.Exit(1)
	}

	if cfg.CurveCSVPath != "" {
		if err := storage.WriteCurveCSV(cfg.CurveCSVPath, curve.Sample(200)); err != nil {
			logger.Warn("Curve CSV write failed: %v", err)
		} else {
			logger.Info("Fitted curve sampled to %s", cfg.CurveCSVPath)
		}
	}

	evaluator := services.NewEvaluator(logger)
	result, err := evaluator.Evaluate(curve, listings, offer, cfg.Tolerance)
	if err != nil {
		logger.Error("Evaluation failed: %v", err)
		os.Exit(1)
	}

	evaluator.Print(offer, result, curve.MAE())

	fmt.Printf("  Done. Raw CSV → %s | Clean data → PostgreSQL (car_listings table)\n\n",
		cfg.CSVOutputPath)
}
