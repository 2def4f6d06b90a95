package negotiator

import (
	"regexp"
	"strconv"
	"strings"
)

// Plausible all-in freight rate bounds; anything outside is noise.
const (
	minPlausibleRate = 300
	maxPlausibleRate = 20000
)

var (
	currencyRe  = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d{3,5})(?:\.\d{1,2})?`)
	kShortRe    = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*k\b`)
	hundredRe   = regexp.MustCompile(`\b(\d{1,3})\s*hundred\b`)
	offerVerbRe = regexp.MustCompile(`\b(?:at|for|do|offer|offering|rate)\s*\$?\s*(\d{3,5})\b`)
)

// ExtractPrice scans free text for the most likely offered price.
// ignored holds numeric values that must not be read as prices (the
// load's own reference digits). When several candidates survive, the
// highest wins: a broker's top-stated number is the operative offer.
func ExtractPrice(text string, ignored map[float64]bool) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	normalized := strings.ToLower(text)
	var candidates []float64

	appendCandidate := func(value float64) {
		if value >= minPlausibleRate && value <= maxPlausibleRate {
			candidates = append(candidates, value)
		}
	}

	for _, m := range currencyRe.FindAllStringSubmatch(normalized, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			appendCandidate(value)
		}
	}
	for _, m := range kShortRe.FindAllStringSubmatch(normalized, -1) {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			appendCandidate(value * 1000)
		}
	}
	for _, m := range hundredRe.FindAllStringSubmatch(normalized, -1) {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			appendCandidate(value * 100)
		}
	}
	for _, m := range offerVerbRe.FindAllStringSubmatch(normalized, -1) {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			appendCandidate(value)
		}
	}

	best := 0.0
	found := false
	for _, value := range candidates {
		if ignored[value] {
			continue
		}
		if !found || value > best {
			best = value
			found = true
		}
	}
	return best, found
}
