package cli

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"autoscout-evaluator/models"
)

var yearRangeRegexp = regexp.MustCompile(`^\d{4}(-\d{4})?$`)

// Prompter collects the search and offer parameters interactively. Invalid
// input re-prompts until the value passes validation.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// New creates a Prompter reading from r and writing prompts to w.
func New(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// SearchQuery prompts for brand, model, and year range.
func (p *Prompter) SearchQuery() (models.SearchQuery, error) {
	brand, err := p.readNonEmpty("Brand: ")
	if err != nil {
		return models.SearchQuery{}, err
	}
	model, err := p.readNonEmpty("Model: ")
	if err != nil {
		return models.SearchQuery{}, err
	}

	var yearRange string
	for {
		yearRange, err = p.readLine("Year or range of years (e.g. 2015 or 2015-2018): ")
		if err != nil {
			return models.SearchQuery{}, err
		}
		if yearRangeRegexp.MatchString(yearRange) {
			break
		}
		fmt.Fprintln(p.out, "Invalid year or range. Enter a year like '2015' or a range like '2015-2018'.")
	}

	return models.SearchQuery{
		Brand:     strings.ToLower(brand),
		Model:     strings.ToLower(model),
		YearRange: yearRange,
	}, nil
}

// Offer prompts for the candidate offer's mileage and price.
func (p *Prompter) Offer() (models.OfferQuery, error) {
	mileage, err := p.readPositiveFloat("Mileage (km): ")
	if err != nil {
		return models.OfferQuery{}, err
	}
	price, err := p.readPositiveFloat("Asked/offered price (CHF): ")
	if err != nil {
		return models.OfferQuery{}, err
	}
	return models.OfferQuery{Mileage: mileage, Price: price}, nil
}

func (p *Prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *Prompter) readNonEmpty(prompt string) (string, error) {
	for {
		s, err := p.readLine(prompt)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		fmt.Fprintln(p.out, "A value is required.")
	}
}

func (p *Prompter) readPositiveFloat(prompt string) (float64, error) {
	for {
		s, err := p.readLine(prompt)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			fmt.Fprintln(p.out, "Please enter a positive number.")
			continue
		}
		return v, nil
	}
}
