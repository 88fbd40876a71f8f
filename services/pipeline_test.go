package services

import (
	"errors"
	"testing"

	"autoscout-evaluator/models"
)

// Full clean → fit → evaluate run over a small scraped-looking dataset.
func TestPipelineGreatOffer(t *testing.T) {
	logger := newTestLogger()
	cleaner := NewCleaner(logger)
	fitter := NewFitter(logger)
	evaluator := NewEvaluator(logger)

	raw := []*models.RawListing{
		{Title: "BMW 320i", RawPrice: "CHF 20'000.–", RawMileage: "50'000 km"},
		{Title: "BMW 320i", RawPrice: "CHF 18'000.–", RawMileage: "70'000 km"},
		{Title: "BMW 320i", RawPrice: "CHF 22'000.–", RawMileage: "30'000 km"},
		{Title: "BMW 320i", RawPrice: "CHF 15'000.–", RawMileage: "90'000 km"},
	}

	listings := cleaner.Clean(raw)
	if len(listings) != 4 {
		t.Fatalf("expected all 4 listings to survive cleaning, got %d", len(listings))
	}

	curve, err := fitter.Fit(listings, 5)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	result, err := evaluator.Evaluate(curve, listings,
		models.OfferQuery{Mileage: 60000, Price: 12000}, 0.10)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Classification != models.GreatOffer {
		t.Errorf("classification: got %v, want GreatOffer (predicted %.2f, fair %.2f–%.2f)",
			result.Classification, result.PredictedPrice,
			result.FairRangeLow, result.FairRangeHigh)
	}
	if len(result.TopLucrative) == 0 {
		t.Error("expected a non-empty lucrative offers list")
	}
	if result.TopLucrative[0].Price != 15000 {
		t.Errorf("cheapest lucrative offer: got %.0f, want 15000",
			result.TopLucrative[0].Price)
	}
}

func TestPipelineEmptyInputReportsInsufficientData(t *testing.T) {
	logger := newTestLogger()
	cleaner := NewCleaner(logger)
	fitter := NewFitter(logger)
	evaluator := NewEvaluator(logger)

	listings := cleaner.Clean(nil)
	if len(listings) != 0 {
		t.Fatalf("expected empty dataset, got %d", len(listings))
	}

	if _, err := fitter.Fit(listings, 5); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Fit on empty dataset: expected ErrInsufficientData, got %v", err)
	}

	var curve *FittedCurve
	_, err := evaluator.Evaluate(curve, listings,
		models.OfferQuery{Mileage: 60000, Price: 12000}, 0.10)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Evaluate on empty dataset: expected ErrInsufficientData, got %v", err)
	}
}
