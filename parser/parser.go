// Package parser extracts routing signals from inbound broker emails:
// plus-tagged recipient addresses, subject tokens, and the custom
// negotiation id header. It is pure string work; nothing here touches
// the database.
package parser

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

// PlusLocalMode controls which local parts are accepted in a plus-tagged
// recipient address. Operators pick the mode at startup.
type PlusLocalMode string

const (
	// PlusLocalDispatchOnly accepts only the reserved dispatch handle.
	PlusLocalDispatchOnly PlusLocalMode = "dispatch_only"
	// PlusLocalDispatchAndHandles additionally accepts driver handles
	// (lowercase alphanumeric, 2-32 chars).
	PlusLocalDispatchAndHandles PlusLocalMode = "dispatch_and_handles"
)

const (
	reservedLocalPart = "dispatch"
	defaultDomain     = "gcdloads.com"

	// NegotiationIDHeader is the transport-level negotiation id header
	// stamped onto every outbound message.
	NegotiationIDHeader = "X-GCD-Negotiation-ID"
)

// routingHeaderOrder is the recipient-style header scan order. The first
// header that produces any address candidate owns the scan; later headers
// are never consulted once an earlier one yielded candidates.
var routingHeaderOrder = []string{
	"Delivered-To",
	"X-Original-To",
	"Envelope-To",
	"To",
	"Cc",
	"Reply-To",
}

var (
	routingAddressRe = regexp.MustCompile(`(?i)([a-z0-9._-]+)\+([a-z0-9._-]+)@([a-z0-9.-]+)`)
	localPartRe      = regexp.MustCompile(`^[a-z0-9]{2,32}$`)
	subjectTokenRe   = regexp.MustCompile(`(?i)\[\s*GCD\s*:\s*(\d+)\s*\]`)
	subjectLoadRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bload\s*#?\s*([a-z0-9._-]+)\b`),
		regexp.MustCompile(`(?i)\bref\s*[:#-]?\s*([a-z0-9._-]+)\b`),
	}
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
)

// Config is passed into every extraction entry point; there is no ambient
// mode state.
type Config struct {
	EmailDomain   string
	PlusLocalMode PlusLocalMode
}

func (c Config) domain() string {
	d := strings.ToLower(strings.TrimSpace(c.EmailDomain))
	if d == "" {
		return defaultDomain
	}
	return d
}

func (c Config) mode() PlusLocalMode {
	if c.PlusLocalMode == PlusLocalDispatchOnly {
		return PlusLocalDispatchOnly
	}
	return PlusLocalDispatchAndHandles
}

// Headers holds raw message header values. Keys are matched
// case-insensitively so both hand-built test maps and net/mail headers
// (which canonicalize casing) resolve the same way.
type Headers map[string][]string

// Values returns all values recorded for name, nil when absent.
func (h Headers) Values(name string) []string {
	if v, ok := h[name]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// Get returns the first value for name.
func (h Headers) Get(name string) string {
	if v := h.Values(name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Routing is the result of recipient plus-tag extraction. Token is
// returned unvalidated; numeric interpretation happens one layer up.
type Routing struct {
	LocalPart     string
	Token         string
	MatchedHeader string
	RawAddress    string
}

// NormalizeHandle lowercases and strips non-alphanumerics for fuzzy
// handle comparison.
func NormalizeHandle(value string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(value), "")
}

// NormalizeLoadRef lowercases and strips non-alphanumerics so "TS-123"
// and "ts 123" compare equal.
func NormalizeLoadRef(value string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(value), "")
}

func (c Config) allowedLocalPart(localPart string) bool {
	candidate := strings.ToLower(strings.TrimSpace(localPart))
	if candidate == reservedLocalPart {
		return true
	}
	if c.mode() == PlusLocalDispatchOnly {
		return false
	}
	return localPartRe.MatchString(candidate)
}

func (c Config) plusTokenFromAddress(address string) *Routing {
	m := routingAddressRe.FindStringSubmatch(address)
	if m == nil {
		return nil
	}
	localPart, token, domain := m[1], m[2], m[3]
	// A plus-tag on any other domain is ignored even when structurally
	// valid; routing tokens must not be spoofable cross-domain.
	if !strings.EqualFold(domain, c.domain()) {
		return nil
	}
	localPart = strings.ToLower(strings.TrimSpace(localPart))
	token = strings.TrimSpace(token)
	if localPart == "" || token == "" {
		return nil
	}
	if !c.allowedLocalPart(localPart) {
		return nil
	}
	return &Routing{LocalPart: localPart, Token: token}
}

// ExtractPlusToken parses a single header value, which may hold a full
// address list, and returns the first valid tagged address in it.
func ExtractPlusToken(value string, cfg Config) *Routing {
	for _, candidate := range addressCandidates(value) {
		if parsed := cfg.plusTokenFromAddress(candidate); parsed != nil {
			return parsed
		}
	}
	return nil
}

// addressCandidates splits a header value into individual addresses,
// falling back to the raw value when it is not a parseable list.
func addressCandidates(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(value)
	if err != nil || len(addrs) == 0 {
		return []string{value}
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}

// ExtractRouting scans the recipient-style headers in the fixed priority
// order and returns the first valid tagged address. The first header that
// yields any address candidate short-circuits the header scan: a valid
// tag in a later header is only reachable when every earlier header was
// empty.
func ExtractRouting(h Headers, cfg Config) *Routing {
	for _, header := range routingHeaderOrder {
		var candidates []string
		var raws []string
		for _, value := range h.Values(header) {
			split := addressCandidates(value)
			candidates = append(candidates, split...)
			for range split {
				raws = append(raws, value)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		for i, candidate := range candidates {
			if parsed := cfg.plusTokenFromAddress(candidate); parsed != nil {
				parsed.MatchedHeader = header
				parsed.RawAddress = raws[i]
				return parsed
			}
		}
		return nil
	}
	return nil
}

// ExtractLoadRefFromSubject pulls a load reference out of a subject line
// via the fallback patterns ("load #<tok>", "ref: <tok>").
func ExtractLoadRefFromSubject(subject string) string {
	clean := strings.TrimSpace(subject)
	if clean == "" {
		return ""
	}
	for _, re := range subjectLoadRes {
		if m := re.FindStringSubmatch(clean); m != nil {
			if token := strings.TrimSpace(m[1]); token != "" {
				return token
			}
		}
	}
	return ""
}

// Resolution layer names, recorded for diagnostics.
const (
	LayerPlusTag      = "plus_tag"
	LayerSubjectToken = "subject_token"
	LayerXHeader      = "x_header"
)

// ExtractNegotiationID resolves a negotiation id from the three
// id-bearing layers, highest precedence first: digits-only plus-tag,
// subject [GCD:<digits>] token, then the transport header. Returns the
// id, the layer that produced it, and whether anything matched.
func ExtractNegotiationID(h Headers, cfg Config) (int64, string, bool) {
	if route := ExtractRouting(h, cfg); route != nil && digitsRe.MatchString(route.Token) {
		if id, err := strconv.ParseInt(route.Token, 10, 64); err == nil {
			return id, LayerPlusTag, true
		}
	}

	subject := strings.TrimSpace(h.Get("Subject"))
	if m := subjectTokenRe.FindStringSubmatch(subject); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return id, LayerSubjectToken, true
		}
	}

	headerValue := strings.TrimSpace(h.Get(NegotiationIDHeader))
	if digitsRe.MatchString(headerValue) {
		if id, err := strconv.ParseInt(headerValue, 10, 64); err == nil {
			return id, LayerXHeader, true
		}
	}

	return 0, "", false
}
