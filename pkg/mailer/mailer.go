// Package mailer sends outbound negotiation email. The sender address and
// subject carry the routing tokens that let broker replies round-trip
// back to the right negotiation even through clients that drop custom
// headers.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// Aliases collapsing load-board naming variants into one recipient tag.
var sourceTagAliases = map[string]string{
	"dat_one":       "dat",
	"datpower":      "dat",
	"dat_power":     "dat",
	"datloadboard":  "dat",
	"truckstop_pro": "truckstop",
	"truckstoppro":  "truckstop",
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeSenderHandle strips a display handle down to a mailbox-safe
// local part, defaulting to the reserved dispatch handle.
func NormalizeSenderHandle(value string) string {
	cleaned := nonAlnumRe.ReplaceAllString(strings.ToLower(value), "")
	if cleaned == "" {
		return "dispatch"
	}
	return cleaned
}

func normalizeSourceTag(loadSource string) string {
	raw := strings.ToLower(strings.TrimSpace(loadSource))
	if raw == "" {
		return ""
	}
	if mapped, ok := sourceTagAliases[raw]; ok {
		raw = mapped
	}
	return nonAlnumRe.ReplaceAllString(raw, "")
}

// AddLoadBoardTag rewrites a broker address so replies arriving through a
// load board keep their source visible: ops@broker.com -> ops+dat@broker.com.
func AddLoadBoardTag(email, loadSource string) string {
	if !strings.Contains(email, "@") {
		return email
	}
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	baseLocal, _, _ := strings.Cut(local, "+")

	tag := normalizeSourceTag(loadSource)
	if tag == "" {
		return baseLocal + "@" + domain
	}
	return baseLocal + "+" + tag + "@" + domain
}

// AppendSubjectToken appends the [GCD:<id>] token when a negotiation id
// is known and not already present, so replies resolve without relying
// on the custom header.
func AppendSubjectToken(subject string, negotiationID int64) string {
	if negotiationID == 0 {
		return subject
	}
	token := fmt.Sprintf("[GCD:%d]", negotiationID)
	if strings.Contains(subject, token) {
		return subject
	}
	return strings.TrimSpace(strings.TrimRight(subject, " ") + " " + token)
}

// BuildSenderToken picks the plus-tagged From address: the negotiation id
// form once an id exists, else the bootstrap handle+loadref form.
func BuildSenderToken(emailDomain, driverHandle, loadRef string, negotiationID int64) string {
	if negotiationID != 0 {
		return fmt.Sprintf("dispatch+%d@%s", negotiationID, emailDomain)
	}
	return fmt.Sprintf("%s+%s@%s", NormalizeSenderHandle(driverHandle), strings.TrimSpace(loadRef), emailDomain)
}

// Outbound is one negotiation reply to send.
type Outbound struct {
	Recipient     string
	Subject       string
	Body          string
	LoadRef       string
	DriverHandle  string
	LoadSource    string
	NegotiationID int64
}

// Sender is the outbound-email primitive the orchestrator depends on.
type Sender interface {
	Send(ctx context.Context, msg Outbound) error
}

// SMTPConfig carries the transport settings for the real sender.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	EmailDomain string
	Timeout     time.Duration
}

type SMTPSender struct {
	cfg SMTPConfig
	log *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, log *slog.Logger) *SMTPSender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SMTPSender{cfg: cfg, log: log}
}

func (s *SMTPSender) Send(ctx context.Context, out Outbound) error {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("smtp not configured")
	}
	if out.Recipient == "" {
		return fmt.Errorf("missing recipient")
	}

	from := BuildSenderToken(s.cfg.EmailDomain, out.DriverHandle, out.LoadRef, out.NegotiationID)
	recipient := AddLoadBoardTag(out.Recipient, out.LoadSource)

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	if err := msg.ReplyTo(from); err != nil {
		return fmt.Errorf("reply-to address: %w", err)
	}
	// The SMTP envelope sender stays the authenticated mailbox; only the
	// header From carries the routing token.
	if err := msg.EnvelopeFrom(s.cfg.Username); err != nil {
		return fmt.Errorf("envelope from: %w", err)
	}
	msg.Subject(AppendSubjectToken(out.Subject, out.NegotiationID))
	if out.NegotiationID != 0 {
		msg.SetGenHeader("X-GCD-Negotiation-ID", strconv.FormatInt(out.NegotiationID, 10))
	}
	msg.SetGenHeader("X-GCD-Load-Ref", out.LoadRef)
	if tag := normalizeSourceTag(out.LoadSource); tag != "" {
		msg.SetGenHeader("X-GCD-Load-Source", tag)
	}
	msg.SetBodyString(mail.TypeTextPlain, out.Body)

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	s.log.Info("outbound email sent", "negotiation", out.NegotiationID, "load_ref", out.LoadRef)
	return nil
}
