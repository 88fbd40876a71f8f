package autoscout

import (
	"strings"
	"testing"

	"autoscout-evaluator/models"
)

func TestSearchURLYearRange(t *testing.T) {
	url := SearchURL(models.SearchQuery{Brand: "bmw", Model: "320i", YearRange: "2015-2018"})

	if !strings.HasPrefix(url, "https://www.autoscout24.ch/de/s/mo-320i/mk-bmw?") {
		t.Errorf("unexpected URL prefix: %s", url)
	}
	if !strings.Contains(url, "firstRegistrationYearFrom=2015") {
		t.Errorf("missing year-from in %s", url)
	}
	if !strings.Contains(url, "firstRegistrationYearTo=2018") {
		t.Errorf("missing year-to in %s", url)
	}
}

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	if got := findChromeBinary("/opt/chrome/chrome"); got != "/opt/chrome/chrome" {
		t.Errorf("configured binary ignored: got %q", got)
	}
}

func TestSearchURLSingleYear(t *testing.T) {
	url := SearchURL(models.SearchQuery{Brand: "audi", Model: "a4", YearRange: "2020"})

	if !strings.Contains(url, "firstRegistrationYearFrom=2020") ||
		!strings.Contains(url, "firstRegistrationYearTo=2020") {
		t.Errorf("single year should bound both ends: %s", url)
	}
}
