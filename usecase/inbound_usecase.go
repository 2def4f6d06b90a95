package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gcd-backend/model"
	"gcd-backend/parser"
)

// Attachment is one decoded MIME part of an inbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InboundEmail is a parsed message handed over by the mailbox poller.
type InboundEmail struct {
	From        string
	Subject     string
	Body        string
	Headers     parser.Headers
	Attachments []Attachment
}

// Negotiation statuses that keep the automated pipeline out even when
// the driver has auto-negotiation on.
var autoNegotiationBlocked = map[string]bool{
	model.StatusManual:             true,
	model.StatusClosed:             true,
	model.StatusClosedPendingEmail: true,
	model.StatusRateConReceived:    true,
	model.StatusRateConSigned:      true,
}

type InboundUsecase struct {
	db          *sql.DB
	stores      StoreFactory
	negotiation *NegotiationUsecase
	parserCfg   parser.Config
	rateConRoot string
	log         *slog.Logger
}

func NewInboundUsecase(db *sql.DB, stores StoreFactory, negotiation *NegotiationUsecase, parserCfg parser.Config, rateConRoot string, log *slog.Logger) *InboundUsecase {
	return &InboundUsecase{
		db:          db,
		stores:      stores,
		negotiation: negotiation,
		parserCfg:   parserCfg,
		rateConRoot: rateConRoot,
		log:         log,
	}
}

// buildStoredBody is the exact text persisted for an inbound broker
// message. It doubles as the idempotence key: reprocessing the same
// source message produces the same string and is skipped.
func buildStoredBody(in InboundEmail, route *parser.Routing) string {
	token := ""
	if route != nil {
		token = route.LocalPart + "+" + route.Token
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		body = "[empty message body]"
	}
	return fmt.Sprintf("From: %s\nSubject: %s\nTo-Token: %s\n\n%s", in.From, in.Subject, token, body)
}

func pdfAttachment(atts []Attachment) *Attachment {
	for i := range atts {
		a := &atts[i]
		if a.ContentType == "application/pdf" || strings.HasSuffix(strings.ToLower(a.Filename), ".pdf") {
			return a
		}
	}
	return nil
}

// ProcessInbound routes one inbound email to a negotiation, logs it,
// and runs the decision pipeline when the driver allows it. Everything
// derived from the message commits in one transaction; a nil return
// means the caller may mark the source message as seen.
func (u *InboundUsecase) ProcessInbound(ctx context.Context, in InboundEmail) error {
	route := parser.ExtractRouting(in.Headers, u.parserCfg)

	tx, err := u.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	st := u.stores(tx)

	neg, handled, err := u.resolveNegotiation(st, in, route)
	if err != nil {
		return err
	}
	if handled {
		return tx.Commit()
	}
	if neg == nil {
		u.log.Debug("inbound email unresolved",
			"from", parser.RedactEmails(in.From),
			"subject", in.Subject,
			"headers", parser.RedactedSnapshot(in.Headers))
		return nil
	}

	storedBody := buildStoredBody(in, route)
	exists, err := st.Messages.ExistsExact(neg.ID, model.SenderBroker, storedBody)
	if err != nil {
		return err
	}
	if exists {
		u.log.Debug("duplicate inbound email skipped", "negotiation", neg.ID)
		return nil
	}
	if err := appendMessage(st, neg.ID, model.SenderBroker, storedBody); err != nil {
		return err
	}

	if neg.Status == model.StatusClosed {
		if att := pdfAttachment(in.Attachments); att != nil {
			if err := u.captureRateCon(st, neg, att); err != nil {
				return err
			}
			return tx.Commit()
		}
	}

	driver, err := st.Drivers.GetByID(neg.DriverID)
	if err != nil {
		return err
	}
	if driver == nil {
		u.log.Warn("negotiation references missing driver", "negotiation", neg.ID, "driver", neg.DriverID)
		return tx.Commit()
	}
	if !driver.AutoNegotiate || autoNegotiationBlocked[neg.Status] {
		u.log.Info("inbound logged, auto-negotiation off",
			"negotiation", neg.ID, "status", neg.Status, "auto_negotiate", driver.AutoNegotiate)
		return tx.Commit()
	}

	result, err := u.negotiation.HandleBrokerReply(ctx, st, neg, in.Body, driver)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	u.log.Info("inbound email processed", "negotiation", neg.ID, "result", result)
	return nil
}

// resolveNegotiation walks the precedence cascade. The boolean reports
// that the message was fully handled inside resolution, which only
// happens on the ambiguous fan-out path.
func (u *InboundUsecase) resolveNegotiation(st Stores, in InboundEmail, route *parser.Routing) (*model.Negotiation, bool, error) {
	if id, layer, ok := parser.ExtractNegotiationID(in.Headers, u.parserCfg); ok {
		neg, err := st.Negotiations.GetByID(id)
		if err != nil {
			return nil, false, err
		}
		if neg != nil {
			u.log.Debug("negotiation resolved", "negotiation", neg.ID, "layer", layer)
			return neg, false, nil
		}
		// A digits-only token can also be a bare load reference, so an
		// id that matches no row does not end the cascade; the handle
		// and subject layers still get a look.
		u.log.Debug("extracted negotiation id has no row", "id", id, "layer", layer)
	}

	// Handle + load-ref: a tagged address whose token is not a bare
	// negotiation id names the lane directly.
	if route != nil && route.LocalPart != "dispatch" {
		driver, err := st.Drivers.FindByHandle(route.LocalPart)
		if err != nil {
			return nil, false, err
		}
		if driver != nil {
			load, err := st.Loads.FindByRef(route.Token)
			if err != nil {
				return nil, false, err
			}
			if load != nil {
				neg, err := st.Negotiations.LatestByDriverAndLoad(driver.ID, load.ID)
				if err != nil {
					return nil, false, err
				}
				if neg != nil {
					u.log.Debug("negotiation resolved", "negotiation", neg.ID, "layer", "handle_load_ref")
					return neg, false, nil
				}
			}
		}
	}

	ref := parser.ExtractLoadRefFromSubject(in.Subject)
	if ref == "" {
		return nil, false, nil
	}
	load, err := st.Loads.FindByRef(ref)
	if err != nil {
		return nil, false, err
	}
	if load == nil {
		return nil, false, nil
	}
	candidates, err := st.Negotiations.ActiveByLoad(load.ID)
	if err != nil {
		return nil, false, err
	}
	switch len(candidates) {
	case 0:
		return nil, false, nil
	case 1:
		u.log.Debug("negotiation resolved", "negotiation", candidates[0].ID, "layer", "subject_load_ref")
		return &candidates[0], false, nil
	}

	// Several live negotiations share this load. Never guess: park every
	// candidate for a human and stop.
	for i := range candidates {
		cand := &candidates[i]
		if err := st.Negotiations.UpdateStatus(cand.ID, model.StatusManualReview); err != nil {
			return nil, false, err
		}
		note := fmt.Sprintf("Ambiguous inbound email: subject %q matched load %s with %d open negotiations. Flagged for manual review.",
			in.Subject, load.Ref(), len(candidates))
		if err := appendMessage(st, cand.ID, model.SenderSystem, note); err != nil {
			return nil, false, err
		}
	}
	u.log.Warn("ambiguous inbound email flagged",
		"load", load.Ref(), "candidates", len(candidates), "subject", in.Subject)
	return nil, true, nil
}

// captureRateCon stores a received rate confirmation PDF and moves the
// negotiation forward.
func (u *InboundUsecase) captureRateCon(st Stores, neg *model.Negotiation, att *Attachment) error {
	dir := filepath.Join(u.rateConRoot, fmt.Sprintf("driver_%d", neg.DriverID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	path := filepath.Join(dir, fmt.Sprintf("neg_%d_%s.pdf", neg.ID, suffix))
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return err
	}
	if err := st.Negotiations.SetRateCon(neg.ID, path); err != nil {
		return err
	}
	if err := appendMessage(st, neg.ID, model.SenderSystem,
		fmt.Sprintf("Rate confirmation received (%s). Stored at %s.", att.Filename, path)); err != nil {
		return err
	}
	u.log.Info("rate confirmation captured", "negotiation", neg.ID, "path", path)
	return nil
}
