package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"autoscout-evaluator/models"
	"autoscout-evaluator/utils"
)

// ErrInvalidOffer means the user's offer failed its precondition check.
var ErrInvalidOffer = errors.New("invalid offer")

// PriceCurve maps a mileage to a predicted fair price.
type PriceCurve interface {
	Predict(mileage float64) float64
}

// Evaluator classifies offers against a fitted price curve and the cleaned
// dataset it was built on.
type Evaluator struct {
	logger *utils.Logger
}

// NewEvaluator creates an Evaluator with the given logger.
func NewEvaluator(logger *utils.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate predicts a fair price for the offer's mileage, derives a fair
// band of tolerance × the population standard deviation of dataset prices,
// and classifies the offer. Prices exactly on a band boundary count as fair.
// It is a pure computation over its inputs.
func (e *Evaluator) Evaluate(curve PriceCurve, listings []*models.Listing,
	offer models.OfferQuery, tolerance float64) (*models.EvaluationResult, error) {

	if tolerance <= 0 || tolerance >= 1 {
		return nil, fmt.Errorf("%w: tolerance %g outside (0,1)", ErrInvalidConfig, tolerance)
	}
	if offer.Price <= 0 || offer.Mileage <= 0 {
		return nil, fmt.Errorf("%w: price and mileage must be positive", ErrInvalidOffer)
	}
	if curve == nil || len(listings) == 0 {
		return nil, fmt.Errorf("%w: nothing to evaluate against", ErrInsufficientData)
	}
	// A nil *FittedCurve boxed in the interface slips past the check above.
	if fc, ok := curve.(*FittedCurve); ok && fc == nil {
		return nil, fmt.Errorf("%w: nothing to evaluate against", ErrInsufficientData)
	}

	predicted := curve.Predict(offer.Mileage)

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	band := tolerance * stat.PopStdDev(prices, nil)

	result := &models.EvaluationResult{
		PredictedPrice: predicted,
		FairRangeLow:   predicted - band,
		FairRangeHigh:  predicted + band,
	}

	switch {
	case offer.Price < result.FairRangeLow:
		result.Classification = models.GreatOffer
	case offer.Price > result.FairRangeHigh:
		result.Classification = models.Overpriced
	default:
		result.Classification = models.FairOffer
	}

	result.TopLucrative = topLucrative(listings, result.FairRangeLow)

	e.logger.Debug("[evaluator] offer %.0f @ %.0f km → %s (fair %.0f–%.0f)",
		offer.Price, offer.Mileage, result.Classification,
		result.FairRangeLow, result.FairRangeHigh)
	return result, nil
}

// topLucrative returns up to three listings priced below the fair range,
// cheapest first. Equal prices keep their dataset order.
func topLucrative(listings []*models.Listing, fairLow float64) []*models.Listing {
	below := make([]*models.Listing, 0)
	for _, l := range listings {
		if l.Price < fairLow {
			below = append(below, l)
		}
	}
	sort.SliceStable(below, func(i, j int) bool {
		return below[i].Price < below[j].Price
	})
	if len(below) > 3 {
		below = below[:3]
	}
	return below
}

// Print renders the evaluation as a human-readable console report.
func (e *Evaluator) Print(offer models.OfferQuery, r *models.EvaluationResult, mae float64) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🚗 CAR OFFER ANALYSIS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Your Offer\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Price   : CHF %.2f\n", offer.Price)
	fmt.Printf("  Mileage : %.0f km\n", offer.Mileage)
	fmt.Println()

	fmt.Printf("\033[1;33m  Verdict\033[0m\n")
	fmt.Printf("  %s\n", thin)
	switch r.Classification {
	case models.GreatOffer:
		fmt.Printf("  \033[1;32mThis is a great offer!\033[0m\n")
	case models.FairOffer:
		fmt.Printf("  \033[1;33mThis offer is fair.\033[0m\n")
	case models.Overpriced:
		fmt.Printf("  \033[1;31mThis offer is overpriced.\033[0m\n")
	}
	fmt.Printf("  Predicted price  : CHF %.2f\n", r.PredictedPrice)
	fmt.Printf("  Fair price range : CHF %.2f – CHF %.2f\n", r.FairRangeLow, r.FairRangeHigh)
	fmt.Printf("  Model MAE        : CHF %.2f (average deviation of the fit)\n", mae)
	fmt.Println()

	fmt.Printf("\033[1;33m  Top 3 Lucrative Offers\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopLucrative) == 0 {
		fmt.Printf("  No listings below the fair price range\n")
	} else {
		for i, l := range r.TopLucrative {
			fmt.Printf("  \033[1m%d.\033[0m CHF %-10.0f %8.0f km  %s\n",
				i+1, l.Price, l.Mileage, truncate(l.Title, 32))
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
