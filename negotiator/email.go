package negotiator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders a price as brokers expect it: "$3,200".
func FormatCurrency(value float64) string {
	return currencyPrinter.Sprintf("$%d", int64(value+0.5))
}

// FormatCurrencyPtr renders an optional price, "negotiable" when absent.
func FormatCurrencyPtr(value *float64) string {
	if value == nil {
		return "negotiable"
	}
	return FormatCurrency(*value)
}

// GenerateEmail builds the dispatcher-style reply body for a decision.
// Used whenever the AI suggester did not supply a body of its own.
func GenerateEmail(loadRef, origin, destination string, d Decision) string {
	lane := ""
	if origin != "" && destination != "" {
		lane = fmt.Sprintf(" %s to %s", origin, destination)
	}
	intro := fmt.Sprintf("Hi, this is dispatch checking in on load %s%s.", loadRef, lane)
	price := FormatCurrencyPtr(d.Price)

	switch d.Template {
	case TemplateCloseTheDeal:
		return strings.Join([]string{
			intro,
			"",
			fmt.Sprintf("If you can do %s all-in, we can lock this in now and get moving.", price),
			"Send over your confirmation and we'll finalize right away.",
		}, "\n")
	case TemplatePoliteDecline:
		return strings.Join([]string{
			intro,
			"",
			"We appreciate the update, but we're too far apart on rate to make this one work.",
			"If your number comes up, send it over and we'll take another look.",
		}, "\n")
	default:
		return strings.Join([]string{
			intro,
			"",
			fmt.Sprintf("We're interested and can do this for %s all-in.", price),
			"If that works for you, we'll lock it down now.",
		}, "\n")
	}
}
