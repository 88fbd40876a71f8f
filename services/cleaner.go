package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"autoscout-evaluator/models"
	"autoscout-evaluator/utils"
)

// mileageSentinels are card texts that mean "new vehicle / no mileage" in the
// languages AutoScout24.ch serves. They parse to mileage 0 instead of failing.
var mileageSentinels = map[string]struct{}{
	"Neues Fahrzeug": {},
	"Véhicule neuf":  {},
	"Veicolo nuovo":  {},
	"New vehicle":    {},
	"No mileage":     {},
}

var priceReplacer = strings.NewReplacer(
	"CHF", "",
	"\u00a0", "",
	"'", "",
	".–", "",
	",", "",
)

var mileageReplacer = strings.NewReplacer(
	"\u00a0", "",
	"'", "",
	"km", "",
)

// Cleaner transforms RawListings into clean, validated Listings and filters
// statistical outliers from the result.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean parses the raw price/mileage texts, drops unparseable records, and
// removes price and mileage outliers using 1.5×IQR bounds. An empty result
// means there is nothing to analyze; it is not an error.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.Listing {
	parsed := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		price, err := c.parsePrice(r.RawPrice)
		if err != nil {
			c.logger.Warn("[cleaner] Dropping %q: %v", r.Title, err)
			continue
		}
		mileage, err := c.parseMileage(r.RawMileage)
		if err != nil {
			c.logger.Warn("[cleaner] Dropping %q: %v", r.Title, err)
			continue
		}

		parsed = append(parsed, &models.Listing{
			Title:     r.Title,
			Price:     price,
			Mileage:   mileage,
			URL:       r.URL,
			CreatedAt: time.Now(),
		})
	}

	if len(parsed) == 0 {
		c.logger.Warn("[cleaner] No valid records after parsing %d raw listings", len(raw))
		return nil
	}

	result := c.filterOutliers(parsed)
	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d unparseable, %d outliers)",
		len(raw), len(result), len(raw)-len(parsed), len(parsed)-len(result))
	return result
}

// parsePrice turns a card price like "CHF 18'500.–" into a number.
func (c *Cleaner) parsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(priceReplacer.Replace(raw))
	s = strings.TrimSpace(strings.TrimRight(s, ".-–"))
	if s == "" {
		return 0, fmt.Errorf("empty price text %q", raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unparseable price text %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative price %d in %q", n, raw)
	}
	return float64(n), nil
}

// parseMileage turns a card mileage like "45'000 km" into a number. Sentinel
// phrases for new vehicles map to 0.
func (c *Cleaner) parseMileage(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if _, ok := mileageSentinels[trimmed]; ok {
		return 0, nil
	}

	s := strings.TrimSpace(mileageReplacer.Replace(trimmed))
	if s == "" {
		return 0, fmt.Errorf("empty mileage text %q", raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unparseable mileage text %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative mileage %d in %q", n, raw)
	}
	return float64(n), nil
}

// filterOutliers keeps a listing iff its price lies within the price IQR
// bounds and its mileage is either the zero sentinel or within the mileage
// IQR bounds. Zero-mileage records are excluded from the mileage quartile
// computation so new vehicles do not skew it.
func (c *Cleaner) filterOutliers(listings []*models.Listing) []*models.Listing {
	prices := make([]float64, 0, len(listings))
	mileages := make([]float64, 0, len(listings))
	for _, l := range listings {
		prices = append(prices, l.Price)
		if l.Mileage > 0 {
			mileages = append(mileages, l.Mileage)
		}
	}

	priceLow, priceHigh := iqrBounds(prices)

	// All-new datasets have no mileage distribution to bound.
	haveMileageBounds := len(mileages) > 0
	var mileageLow, mileageHigh float64
	if haveMileageBounds {
		mileageLow, mileageHigh = iqrBounds(mileages)
	}

	result := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Price < priceLow || l.Price > priceHigh {
			c.logger.Debug("[cleaner] Price outlier dropped: %.0f (bounds %.0f–%.0f)",
				l.Price, priceLow, priceHigh)
			continue
		}
		if l.Mileage > 0 && haveMileageBounds &&
			(l.Mileage < mileageLow || l.Mileage > mileageHigh) {
			c.logger.Debug("[cleaner] Mileage outlier dropped: %.0f (bounds %.0f–%.0f)",
				l.Mileage, mileageLow, mileageHigh)
			continue
		}
		result = append(result, l)
	}
	return result
}

// iqrBounds returns the 1.5×IQR outlier bounds of the given values. With a
// single value Q1 equals Q3 and the bounds collapse to that value.
func iqrBounds(values []float64) (low, high float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}
