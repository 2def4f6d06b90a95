// Package negotiator holds the numeric core of the broker negotiation:
// price extraction, the floor/zone decision engine, and the guardrails
// applied to any externally-suggested decision before it can reach the
// outbound path.
package negotiator

import (
	"fmt"
	"math"
)

// Action is the fixed outbound-decision vocabulary.
type Action string

const (
	ActionSendCounter Action = "SEND_COUNTER"
	ActionWalkAway    Action = "WALK_AWAY"
	ActionFinalize    Action = "FINALIZE"
)

// Template selects the outbound message wording.
type Template string

const (
	TemplateCloseTheDeal        Template = "close_the_deal"
	TemplateStandardNegotiation Template = "standard_negotiation"
	TemplatePoliteDecline       Template = "polite_decline"
)

// Zone classifies an offer against the floor.
type Zone string

const (
	ZoneGreen  Zone = "GREEN"
	ZoneYellow Zone = "YELLOW"
	ZoneRed    Zone = "RED"
)

// Decision is the negotiation move. Constructed only by Decide and
// Enforce; the orchestrator never assembles one by hand.
type Decision struct {
	Action   Action
	Price    *float64 // nil for walk-away
	Template Template
	Zone     Zone
	Log      string
}

// FloorInputs are the driver settings and lane distance the floor is
// computed from.
type FloorInputs struct {
	MinCPM        float64
	MinFlatRate   float64
	DistanceMiles float64
}

// AbsoluteFloor computes the minimum acceptable all-in price:
// max(flat floor, per-mile floor x distance). When neither is
// configured the floor defaults to a 10% premium over the detected
// price, so there is always something to negotiate against.
func AbsoluteFloor(in FloorInputs, detectedPrice float64) float64 {
	floor := math.Max(in.MinFlatRate, in.MinCPM*in.DistanceMiles)
	if floor <= 0 {
		floor = detectedPrice * 1.10
	}
	return floor
}

// RoundTo50 snaps a price to the nearest 50: brokers read clean numbers.
func RoundTo50(value float64) float64 {
	return math.Round(value/50) * 50
}

func counterTargetFromFloor(floor float64) float64 {
	return RoundTo50(floor * 1.08)
}

// Decide classifies the detected broker price against the floor and
// produces the baseline move.
func Decide(detectedPrice float64, in FloorInputs) Decision {
	floor := AbsoluteFloor(in, detectedPrice)
	ratio := 0.0
	if floor > 0 {
		ratio = detectedPrice / floor
	}

	// GREEN: close quickly when the offer is at or near the floor.
	if ratio >= 0.95 {
		closePrice := math.Max(detectedPrice, floor)
		return Decision{
			Action:   ActionSendCounter,
			Price:    &closePrice,
			Template: TemplateCloseTheDeal,
			Zone:     ZoneGreen,
			Log:      fmt.Sprintf("GREEN ZONE (ratio %.2f): Closing at %s.", ratio, FormatCurrency(closePrice)),
		}
	}

	// RED: too far below the floor, walk away.
	if ratio < 0.80 {
		return Decision{
			Action:   ActionWalkAway,
			Template: TemplatePoliteDecline,
			Zone:     ZoneRed,
			Log: fmt.Sprintf("RED ZONE (ratio %.2f): Offer %s too far below floor %s. Walking away.",
				ratio, FormatCurrency(detectedPrice), FormatCurrency(floor)),
		}
	}

	// YELLOW: negotiate up with a clean round counter.
	target := counterTargetFromFloor(floor)
	return Decision{
		Action:   ActionSendCounter,
		Price:    &target,
		Template: TemplateStandardNegotiation,
		Zone:     ZoneYellow,
		Log:      fmt.Sprintf("YELLOW ZONE (ratio %.2f): Countering at %s.", ratio, FormatCurrency(target)),
	}
}
