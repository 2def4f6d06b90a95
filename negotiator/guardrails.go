package negotiator

import (
	"fmt"
	"strconv"
	"strings"
)

// Suggestion is an untrusted decision candidate, typically a
// language-model reply. Every field is free text.
type Suggestion struct {
	Action    string
	Price     string
	Template  string
	EmailBody string
}

// Enforce clamps a suggestion to the floor invariants. Whatever the
// suggested action, price or template text, the result always carries a
// vocabulary-safe action and template, and any price is at least the
// floor and a multiple of 50.
func Enforce(s Suggestion, in FloorInputs, detectedPrice float64) Decision {
	action := Action(strings.ToUpper(strings.TrimSpace(s.Action)))
	switch action {
	case ActionSendCounter, ActionWalkAway, ActionFinalize:
	default:
		action = ActionSendCounter
	}

	floor := AbsoluteFloor(in, detectedPrice)

	if action == ActionWalkAway {
		return Decision{
			Action:   ActionWalkAway,
			Template: TemplatePoliteDecline,
			Zone:     ZoneRed,
			Log: fmt.Sprintf("Suggested walk-away accepted against floor %s.",
				FormatCurrency(floor)),
		}
	}

	parsed, err := parsePriceText(s.Price)
	if err != nil {
		parsed = counterTargetFromFloor(floor)
	}

	price := RoundTo50(max(parsed, floor))
	if price <= 0 {
		price = RoundTo50(floor)
	}

	template := Template(strings.TrimSpace(s.Template))
	switch template {
	case TemplateCloseTheDeal, TemplateStandardNegotiation, TemplatePoliteDecline:
	default:
		template = TemplateStandardNegotiation
	}
	if action == ActionFinalize {
		template = TemplateCloseTheDeal
	}

	// Finalize collapses into a counter with the close template: it only
	// differs downstream of this guardrail.
	return Decision{
		Action:   ActionSendCounter,
		Price:    &price,
		Template: template,
		Zone:     ZoneYellow,
		Log: fmt.Sprintf("Suggested %s clamped to %s (floor %s).",
			strings.ToLower(string(action)), FormatCurrency(price), FormatCurrency(floor)),
	}
}

func parsePriceText(raw string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "$", ""), ",", ""))
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}
	return strconv.ParseFloat(cleaned, 64)
}
