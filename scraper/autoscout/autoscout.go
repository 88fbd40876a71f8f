package autoscout

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"autoscout-evaluator/config"
	"autoscout-evaluator/models"
	"autoscout-evaluator/utils"
)

const baseURL = "https://www.autoscout24.ch"

// Scraper fetches used-car listings from AutoScout24.ch result pages.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	seen   *utils.SeenSet
	retry  *utils.RetryConfig
}

// New creates a ready-to-use AutoScout24 Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewSeenSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// SearchURL builds the AutoScout24.ch search URL for the given query. The
// year range bounds first registration, and the condition filters exclude
// demonstration and pre-registered groupings from skewing the results.
func SearchURL(q models.SearchQuery) string {
	years := strings.SplitN(q.YearRange, "-", 2)
	from := years[0]
	to := years[len(years)-1]

	return fmt.Sprintf(
		"%s/de/s/mo-%s/mk-%s?firstRegistrationYearFrom=%s&firstRegistrationYearTo=%s"+
			"&conditionTypeGroups%%5B0%%5D=new&conditionTypes%%5B0%%5D=used",
		baseURL, q.Model, q.Brand, from, to)
}

// Scrape fetches up to PagesToScrape result pages for the query and returns
// the raw listings found across them.
func (s *Scraper) Scrape(q models.SearchQuery) ([]*models.RawListing, error) {
	searchURL := SearchURL(q)
	s.logger.Info("[autoscout] Starting scrape — %s %s (%s), up to %d pages",
		q.Brand, q.Model, q.YearRange, s.cfg.PagesToScrape)
	s.logger.Info("[autoscout] Search URL: %s", searchURL)

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	if chromeBin != "" {
		s.logger.Info("[autoscout] Using browser binary: %s", chromeBin)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	type pageResult struct {
		page     int
		listings []*models.RawListing
	}

	var mu sync.Mutex
	results := make([]pageResult, 0, s.cfg.PagesToScrape)

	for page := 0; page < s.cfg.PagesToScrape; page++ {
		p := page
		s.pool.Submit(func() {
			pageURL := fmt.Sprintf("%s&pagination[page]=%d", searchURL, p)
			listings, err := s.scrapePage(allocCtx, pageURL, p)
			if err != nil {
				s.logger.Error("[autoscout] Page %d failed: %v", p, err)
				return
			}
			if len(listings) == 0 {
				s.logger.Debug("[autoscout] Page %d returned no listings", p)
				return
			}
			mu.Lock()
			results = append(results, pageResult{page: p, listings: listings})
			mu.Unlock()
		})
	}
	s.pool.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].page < results[j].page })

	var all []*models.RawListing
	for _, r := range results {
		all = append(all, r.listings...)
	}

	s.logger.Info("[autoscout] Scrape complete — total raw listings: %d", len(all))
	return all, nil
}

// scrapePage loads one result page and extracts the listing cards. Cards are
// deduplicated across pages by URL, or by title/price/mileage when the card
// carries no link.
func (s *Scraper) scrapePage(allocCtx context.Context, pageURL string, pageNum int) ([]*models.RawListing, error) {
	var rawListings []*models.RawListing

	err := s.retry.Do(allocCtx, fmt.Sprintf("scrape-page-%d", pageNum), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		type cardData struct {
			Title   string `json:"title"`
			Price   string `json:"price"`
			Mileage string `json:"mileage"`
			URL     string `json:"url"`
		}

		var cards []cardData

		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(3*time.Second),

			// Zooming far out makes the lazy-loaded cards render without
			// scripted scrolling, which the site intermittently blocks.
			chromedp.Evaluate(`document.body.style.zoom='0.05'`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var limit = `+fmt.Sprintf("%d", s.cfg.ListingsPerPage)+`;
					var cards = document.querySelectorAll('div.chakra-stack.css-2i9fo6');
					for (var i = 0; i < cards.length && results.length < limit; i++) {
						var card = cards[i];

						var titleEl = card.querySelector('h2.chakra-heading');
						var priceEl = card.querySelector('p.chakra-text.css-bwl0or');

						var mileageEl = null;
						var mileageWrap = card.querySelector('div.css-e0jgn');
						if (mileageWrap) {
							mileageEl = mileageWrap.querySelector('p.chakra-text');
						}

						var linkEl = card.querySelector('a[href]') || card.closest('a[href]');

						results.push({
							title:   titleEl ? titleEl.textContent.trim() : 'No title',
							price:   priceEl ? priceEl.textContent.trim() : 'No price',
							mileage: mileageEl ? mileageEl.textContent.trim() : 'No mileage',
							url:     linkEl ? linkEl.href : ''
						});
					}
					return results;
				})()
			`, &cards),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[autoscout] Page %d — found %d cards", pageNum, len(cards))

		rawListings = rawListings[:0]
		for _, c := range cards {
			key := c.URL
			if key == "" {
				key = c.Title + "|" + c.Price + "|" + c.Mileage
			}
			if !s.seen.Add(key) {
				s.logger.Debug("[autoscout] Skipping duplicate: %s", key)
				continue
			}

			rawListings = append(rawListings, &models.RawListing{
				Title:      c.Title,
				RawPrice:   c.Price,
				RawMileage: c.Mileage,
				URL:        c.URL,
				ScrapedAt:  time.Now(),
			})
		}
		return nil
	})

	return rawListings, err
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
