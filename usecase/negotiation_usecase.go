package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"gcd-backend/model"
	"gcd-backend/negotiator"
	"gcd-backend/pkg/gemini"
	"gcd-backend/pkg/mailer"
)

// Orchestrator return codes. SEND_COUNTER and WALK_AWAY report the
// decision that was carried out; WAITING_FOR_HUMAN means no safe
// automated action was possible; REVIEW_REQUIRED means a draft is
// parked on the negotiation awaiting approval.
const (
	ResultSendCounter     = "SEND_COUNTER"
	ResultWalkAway        = "WALK_AWAY"
	ResultWaitingForHuman = "WAITING_FOR_HUMAN"
	ResultReviewRequired  = "REVIEW_REQUIRED"
)

type NegotiationUsecase struct {
	db     *sql.DB
	stores StoreFactory
	ai     gemini.Suggester
	sender mailer.Sender
	log    *slog.Logger
}

func NewNegotiationUsecase(db *sql.DB, stores StoreFactory, ai gemini.Suggester, sender mailer.Sender, log *slog.Logger) *NegotiationUsecase {
	return &NegotiationUsecase{db: db, stores: stores, ai: ai, sender: sender, log: log}
}

func newMessageID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Now(), entropy).String()
}

func appendMessage(st Stores, negotiationID int64, sender, body string) error {
	return st.Messages.Insert(&model.Message{
		ID:            newMessageID(),
		NegotiationID: negotiationID,
		Sender:        sender,
		Body:          body,
		Timestamp:     time.Now(),
	})
}

var digitRunRe = regexp.MustCompile(`\d{3,}`)

// loadRefIgnoreSet collects the numeric runs inside a load reference so
// the price extractor does not mistake "load 3500" for a $3,500 offer.
func loadRefIgnoreSet(ref string) map[float64]bool {
	ignored := map[float64]bool{}
	for _, run := range digitRunRe.FindAllString(ref, -1) {
		if v, err := strconv.ParseFloat(run, 64); err == nil {
			ignored[v] = true
		}
	}
	return ignored
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func driverHandle(d *model.Driver) string {
	if d.DispatchHandle != nil && *d.DispatchHandle != "" {
		return *d.DispatchHandle
	}
	return d.DisplayName
}

// HandleBrokerReply runs the decision sequence for one resolved broker
// message: extract price, decide, optionally override with a clamped AI
// suggestion, audit, then send or park for review. All writes go
// through st, which the caller binds to a single transaction.
func (u *NegotiationUsecase) HandleBrokerReply(ctx context.Context, st Stores, neg *model.Negotiation, body string, driver *model.Driver) (string, error) {
	load, err := st.Loads.GetByID(neg.LoadID)
	if err != nil {
		return "", err
	}
	loadRef := ""
	origin, destination, loadSource := "", "", ""
	ignored := map[float64]bool{}
	if load != nil {
		loadRef = load.Ref()
		origin, destination = load.Origin, load.Destination
		loadSource = derefStr(load.SourcePlatform)
		ignored = loadRefIgnoreSet(loadRef)
	}

	detected, found := negotiator.ExtractPrice(body, ignored)
	if !found {
		u.log.Debug("no price detected in broker reply", "negotiation", neg.ID)
		return ResultWaitingForHuman, nil
	}

	in := negotiator.FloorInputs{
		MinCPM:        driver.MinCPMValue(),
		MinFlatRate:   driver.MinFlatRateValue(),
		DistanceMiles: neg.DistanceMiles,
	}
	decision := negotiator.Decide(detected, in)
	if decision.Zone == negotiator.ZoneGreen {
		if err := st.Negotiations.UpdateStatus(neg.ID, model.StatusClosingStance); err != nil {
			return "", err
		}
	}

	emailBody := ""
	if suggestion := u.ai.SuggestDecision(ctx, gemini.SuggestRequest{
		BrokerMessage: body,
		DetectedPrice: detected,
		LoadRef:       loadRef,
		MinCPM:        in.MinCPM,
		MinFlatRate:   in.MinFlatRate,
	}); suggestion != nil {
		decision = negotiator.Enforce(negotiator.Suggestion{
			Action:   suggestion.Action,
			Price:    suggestion.Price,
			Template: suggestion.Template,
		}, in, detected)
		emailBody = strings.TrimSpace(suggestion.EmailBody)
	}

	if err := appendMessage(st, neg.ID, model.SenderSystem, decision.Log); err != nil {
		return "", err
	}

	if decision.Action == negotiator.ActionWalkAway && !driver.NotifyOnDecline {
		return ResultWalkAway, nil
	}

	recipient := derefStr(neg.BrokerEmail)
	if recipient == "" {
		mcNumber := neg.BrokerMCNumber
		if mcNumber == "" && load != nil {
			mcNumber = derefStr(load.MCNumber)
		}
		if mcNumber != "" {
			contact, err := st.BrokerEmails.BestByMCNumber(mcNumber)
			if err != nil {
				return "", err
			}
			if contact != nil {
				recipient = contact.Email
			}
		}
	}
	if recipient == "" {
		if err := appendMessage(st, neg.ID, model.SenderSystem,
			"No broker contact address on file. Reply requires manual handling."); err != nil {
			return "", err
		}
		return ResultWaitingForHuman, nil
	}

	if emailBody == "" {
		emailBody = negotiator.GenerateEmail(loadRef, origin, destination, decision)
	}
	if loadRef != "" && !strings.Contains(strings.ToLower(emailBody), strings.ToLower(loadRef)) {
		emailBody += fmt.Sprintf("\n\nLoad reference: %s", loadRef)
	}
	subject := fmt.Sprintf("Load %s - %s to %s", loadRef, origin, destination)

	if driver.ReviewBeforeSend {
		if err := st.Negotiations.SetPendingReview(neg.ID, subject, emailBody, string(decision.Action), decision.Price); err != nil {
			return "", err
		}
		if err := appendMessage(st, neg.ID, model.SenderSystem,
			fmt.Sprintf("Draft reply queued for review: %s at %s.",
				decision.Action, negotiator.FormatCurrencyPtr(decision.Price))); err != nil {
			return "", err
		}
		return ResultReviewRequired, nil
	}

	out := mailer.Outbound{
		Recipient:     recipient,
		Subject:       subject,
		Body:          emailBody,
		LoadRef:       loadRef,
		DriverHandle:  driverHandle(driver),
		LoadSource:    loadSource,
		NegotiationID: neg.ID,
	}
	if err := u.sender.Send(ctx, out); err != nil {
		u.log.Warn("outbound send failed", "negotiation", neg.ID, "error", err)
		if err := appendMessage(st, neg.ID, model.SenderSystem,
			fmt.Sprintf("Failed to send %s at %s: %v",
				decision.Action, negotiator.FormatCurrencyPtr(decision.Price), err)); err != nil {
			return "", err
		}
		return ResultWaitingForHuman, nil
	}

	if decision.Price != nil {
		if err := st.Negotiations.UpdateCurrentOffer(neg.ID, *decision.Price); err != nil {
			return "", err
		}
	}
	if err := appendMessage(st, neg.ID, model.SenderSystem,
		fmt.Sprintf("AI SENT %s at %s to %s.",
			decision.Action, negotiator.FormatCurrencyPtr(decision.Price), recipient)); err != nil {
		return "", err
	}
	return string(decision.Action), nil
}

// RunReply drives the orchestrator with a supplied broker message body.
// Backs the simulate endpoint; the message is logged like a real
// inbound reply.
func (u *NegotiationUsecase) RunReply(ctx context.Context, negotiationID int64, body string) (string, error) {
	tx, err := u.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	st := u.stores(tx)
	neg, err := st.Negotiations.GetByID(negotiationID)
	if err != nil {
		return "", err
	}
	if neg == nil {
		return "", fmt.Errorf("negotiation %d not found", negotiationID)
	}
	driver, err := st.Drivers.GetByID(neg.DriverID)
	if err != nil {
		return "", err
	}
	if driver == nil {
		return "", fmt.Errorf("driver %d not found", neg.DriverID)
	}

	if err := appendMessage(st, neg.ID, model.SenderBroker, body); err != nil {
		return "", err
	}

	result, err := u.HandleBrokerReply(ctx, st, neg, body, driver)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return result, nil
}

// ApprovePendingReview sends the draft parked by a review-before-send
// driver and clears the pending fields.
func (u *NegotiationUsecase) ApprovePendingReview(ctx context.Context, negotiationID int64) (string, error) {
	tx, err := u.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	st := u.stores(tx)
	neg, err := st.Negotiations.GetByID(negotiationID)
	if err != nil {
		return "", err
	}
	if neg == nil {
		return "", fmt.Errorf("negotiation %d not found", negotiationID)
	}
	if neg.PendingReviewBody == nil || neg.PendingReviewSubject == nil {
		return "", fmt.Errorf("negotiation %d has no pending review draft", negotiationID)
	}

	driver, err := st.Drivers.GetByID(neg.DriverID)
	if err != nil {
		return "", err
	}
	if driver == nil {
		return "", fmt.Errorf("driver %d not found", neg.DriverID)
	}
	load, err := st.Loads.GetByID(neg.LoadID)
	if err != nil {
		return "", err
	}
	loadRef, loadSource := "", ""
	if load != nil {
		loadRef = load.Ref()
		loadSource = derefStr(load.SourcePlatform)
	}

	recipient := derefStr(neg.BrokerEmail)
	if recipient == "" && neg.BrokerMCNumber != "" {
		contact, err := st.BrokerEmails.BestByMCNumber(neg.BrokerMCNumber)
		if err != nil {
			return "", err
		}
		if contact != nil {
			recipient = contact.Email
		}
	}
	if recipient == "" {
		return "", fmt.Errorf("negotiation %d has no broker contact address", negotiationID)
	}

	out := mailer.Outbound{
		Recipient:     recipient,
		Subject:       *neg.PendingReviewSubject,
		Body:          *neg.PendingReviewBody,
		LoadRef:       loadRef,
		DriverHandle:  driverHandle(driver),
		LoadSource:    loadSource,
		NegotiationID: neg.ID,
	}
	if err := u.sender.Send(ctx, out); err != nil {
		if err := appendMessage(st, neg.ID, model.SenderSystem,
			fmt.Sprintf("Failed to send approved reply: %v", err)); err != nil {
			return "", err
		}
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return ResultWaitingForHuman, nil
	}

	if neg.PendingReviewPrice != nil {
		if err := st.Negotiations.UpdateCurrentOffer(neg.ID, *neg.PendingReviewPrice); err != nil {
			return "", err
		}
	}
	if err := st.Negotiations.ClearPendingReview(neg.ID); err != nil {
		return "", err
	}
	if err := appendMessage(st, neg.ID, model.SenderSystem,
		fmt.Sprintf("Approved reply sent to %s at %s.",
			recipient, negotiator.FormatCurrencyPtr(neg.PendingReviewPrice))); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return ResultSendCounter, nil
}

func (u *NegotiationUsecase) ListMessages(negotiationID int64) ([]model.Message, error) {
	return u.stores(u.db).Messages.ListByNegotiation(negotiationID)
}
