package parser

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`([A-Za-z0-9._%+-]+)@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

// RedactEmails masks the local part of every email address in value so
// raw addresses never reach log output.
func RedactEmails(value string) string {
	return emailRe.ReplaceAllStringFunc(value, func(match string) string {
		m := emailRe.FindStringSubmatch(match)
		local, domain := m[1], m[2]
		if len(local) <= 2 {
			return strings.Repeat("*", len(local)) + "@" + domain
		}
		return local[:2] + "***@" + domain
	})
}

var snapshotHeaders = []string{
	"Delivered-To",
	"X-Original-To",
	"Envelope-To",
	"To",
	"Cc",
	"From",
	"Subject",
	"In-Reply-To",
	"References",
}

// RedactedSnapshot returns the routing-relevant headers with addresses
// masked, for diagnostic logging of unresolved or ambiguous messages.
func RedactedSnapshot(h Headers) map[string][]string {
	snapshot := make(map[string][]string)
	for _, header := range snapshotHeaders {
		values := h.Values(header)
		if len(values) == 0 {
			continue
		}
		redacted := make([]string, 0, len(values))
		for _, v := range values {
			redacted = append(redacted, RedactEmails(v))
		}
		snapshot[header] = redacted
	}
	return snapshot
}
