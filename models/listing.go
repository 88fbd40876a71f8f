package models

import "time"

// RawListing holds unprocessed scraped data directly from the browser.
// Price and mileage are kept as the free-form text shown on the result card
// (e.g. "CHF 18'500.–", "45'000 km", "Neues Fahrzeug").
type RawListing struct {
	Title      string
	RawPrice   string
	RawMileage string
	URL        string
	ScrapedAt  time.Time
}

// Listing is a cleaned, validated record ready for storage and analysis.
// A mileage of exactly 0 is a valid sentinel meaning a new vehicle, not a
// parse failure.
type Listing struct {
	ID        int64
	Title     string
	Price     float64
	Mileage   float64
	URL       string
	CreatedAt time.Time
}

// SearchQuery describes what to look for on the classifieds site.
type SearchQuery struct {
	Brand     string
	Model     string
	YearRange string // "2015" or "2015-2018"
}

// OfferQuery is the user's candidate offer, read-only to the analysis.
type OfferQuery struct {
	Mileage float64
	Price   float64
}

// Classification is the verdict on an offer relative to the fair price band.
type Classification int

const (
	GreatOffer Classification = iota
	FairOffer
	Overpriced
)

func (c Classification) String() string {
	switch c {
	case GreatOffer:
		return "great offer"
	case FairOffer:
		return "fair offer"
	case Overpriced:
		return "overpriced"
	default:
		return "unknown"
	}
}

// EvaluationResult holds the outcome of evaluating an offer against the
// fitted price curve and the cleaned dataset.
type EvaluationResult struct {
	Classification Classification
	PredictedPrice float64
	FairRangeLow   float64
	FairRangeHigh  float64

	// TopLucrative lists up to three dataset listings priced below the
	// fair range, cheapest first.
	TopLucrative []*Listing
}
