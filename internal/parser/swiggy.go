package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	amountSelector  = "div.rupee"
	orderIDSelector = "div._1Hjkp"
	dateSelector    = "div._2kNey"

	orderIDPrefix     = "Order #"
	deliveredOnMarker = "delivered on"
)

// SwiggyParser reads the class-mangled markup of the order detail panel.
// The selectors track whatever the site currently ships; when they rot,
// extraction degrades to Unknown fields rather than failing the run.
type SwiggyParser struct{}

func NewSwiggyParser() *SwiggyParser {
	return &SwiggyParser{}
}

func (p *SwiggyParser) ExtractAmount(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	amount := strings.TrimSpace(doc.Find(amountSelector).First().Text())
	if amount == "" {
		return "", fmt.Errorf("amount not found")
	}

	return amount, nil
}

func (p *SwiggyParser) ExtractOrderID(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	text := doc.Find(orderIDSelector).First().Text()
	id := strings.TrimSpace(strings.ReplaceAll(text, orderIDPrefix, ""))
	if id == "" {
		return "", fmt.Errorf("order id not found")
	}

	return id, nil
}

// ExtractDeliveredLine returns the first text line of the first block that
// mentions a delivery, e.g. "Delivered on Mon, 5 Jan 2024, 10:30". The date
// block holds follow-up lines (delivery rating, timing) that callers never
// want.
func (p *SwiggyParser) ExtractDeliveredLine(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var line string
	doc.Find(dateSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(strings.ToLower(text), deliveredOnMarker) {
			return true
		}
		line = firstLine(text)
		return false
	})

	if line == "" {
		return "", fmt.Errorf("delivery date not found")
	}

	return line, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
