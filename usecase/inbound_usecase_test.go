package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcd-backend/dao"
	"gcd-backend/model"
	"gcd-backend/parser"
)

// inboundWorld runs the full inbound pipeline over fake stores with a
// mocked transaction boundary.
type inboundWorld struct {
	*testWorld
	mock        sqlmock.Sqlmock
	inbound     *InboundUsecase
	negotiation *NegotiationUsecase
}

func newInboundWorld(t *testing.T) *inboundWorld {
	return newInboundWorldMode(t, parser.PlusLocalDispatchOnly)
}

func newInboundWorldMode(t *testing.T, mode parser.PlusLocalMode) *inboundWorld {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w := newTestWorld()
	factory := func(_ dao.DBTX) Stores { return w.stores() }
	negotiation := NewNegotiationUsecase(db, factory, w.suggester, w.sender, discardLogger())
	inbound := NewInboundUsecase(db, factory, negotiation,
		parser.Config{EmailDomain: "gcdloads.com", PlusLocalMode: mode}, t.TempDir(), discardLogger())
	return &inboundWorld{testWorld: w, mock: mock, inbound: inbound, negotiation: negotiation}
}

func brokerHeaders(to, subject string) parser.Headers {
	return parser.Headers{
		"To":      []string{to},
		"Subject": []string{subject},
	}
}

func TestProcessInboundPlusTagRunsPipeline(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate for Dallas run",
		Body:    "We can do $2,100 all-in.",
		Headers: brokerHeaders("dispatch+42@gcdloads.com", "Rate for Dallas run"),
	})
	require.NoError(t, err)

	// Broker message logged, decision audited, counter sent.
	require.Len(t, w.sender.sent, 1)
	bodies := strings.Join(w.messages.bodies(), "\n")
	assert.Contains(t, bodies, "From: broker@example.com")
	assert.Contains(t, bodies, "GREEN ZONE")
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundDuplicateSkipped(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectRollback()

	in := InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate for Dallas run",
		Body:    "We can do $2,100 all-in.",
		Headers: brokerHeaders("dispatch+42@gcdloads.com", "Rate for Dallas run"),
	}
	w.messages.existing[buildStoredBody(in, parser.ExtractRouting(in.Headers, parser.Config{EmailDomain: "gcdloads.com"}))] = true

	require.NoError(t, w.inbound.ProcessInbound(context.Background(), in))

	assert.Empty(t, w.messages.inserted)
	assert.Empty(t, w.sender.sent)
	assert.Empty(t, w.negotiations.offerUpdates)
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundUnresolved(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectRollback()

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "random@elsewhere.com",
		Subject: "hello there",
		Body:    "just checking in",
		Headers: brokerHeaders("ops@elsewhere.com", "hello there"),
	})
	require.NoError(t, err)

	assert.Empty(t, w.messages.inserted)
	assert.Empty(t, w.sender.sent)
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundAmbiguousFanOut(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	second := *w.neg
	second.ID = 43
	w.negotiations.active = []model.Negotiation{second, *w.neg}

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Update on load #TS-481",
		Body:    "We can do $2,100.",
		Headers: brokerHeaders("ops@brokerage.com", "Update on load #TS-481"),
	})
	require.NoError(t, err)

	// Both candidates parked, nothing sent, nothing guessed.
	assert.Equal(t, model.StatusManualReview, w.negotiations.statusUpdates[42])
	assert.Equal(t, model.StatusManualReview, w.negotiations.statusUpdates[43])
	assert.Empty(t, w.sender.sent)
	require.Len(t, w.messages.inserted, 2)
	assert.Contains(t, w.messages.inserted[0].Body, "Ambiguous inbound email")
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundSubjectLoadRefSingleCandidate(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	w.negotiations.active = []model.Negotiation{*w.neg}

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Update on load #TS-481",
		Body:    "We can do $2,100 all-in.",
		Headers: brokerHeaders("ops@brokerage.com", "Update on load #TS-481"),
	})
	require.NoError(t, err)
	require.Len(t, w.sender.sent, 1)
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundHandleLoadRef(t *testing.T) {
	w := newInboundWorldMode(t, parser.PlusLocalDispatchAndHandles)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	w.drivers.byHandle["bigrig"] = w.driver
	w.negotiations.latest = w.neg

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate for Dallas run",
		Body:    "We can do $2,100 all-in.",
		Headers: brokerHeaders("bigrig+TS-481@gcdloads.com", "Rate for Dallas run"),
	})
	require.NoError(t, err)

	require.Len(t, w.sender.sent, 1)
	bodies := strings.Join(w.messages.bodies(), "\n")
	assert.Contains(t, bodies, "To-Token: bigrig+TS-481")
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundDigitsTokenFallsThroughToHandleLoadRef(t *testing.T) {
	w := newInboundWorldMode(t, parser.PlusLocalDispatchAndHandles)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	// "4590" reads as a negotiation id first, but no such row exists; it
	// is this driver's load reference, reachable via the handle layer.
	w.drivers.byHandle["bigmike22"] = w.driver
	w.loads.byRef["4590"] = w.loads.byID[3]
	w.negotiations.latest = w.neg

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate for Dallas run",
		Body:    "We can do $2,100 all-in.",
		Headers: brokerHeaders("bigmike22+4590@gcdloads.com", "Rate for Dallas run"),
	})
	require.NoError(t, err)

	require.Len(t, w.sender.sent, 1)
	bodies := strings.Join(w.messages.bodies(), "\n")
	assert.Contains(t, bodies, "To-Token: bigmike22+4590")
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundAutoNegotiationOff(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	w.driver.AutoNegotiate = false

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate update",
		Body:    "We can do $2,100.",
		Headers: brokerHeaders("dispatch+42@gcdloads.com", "Rate update"),
	})
	require.NoError(t, err)

	// The broker message is still logged; the pipeline stops there.
	require.Len(t, w.messages.inserted, 1)
	assert.Equal(t, model.SenderBroker, w.messages.inserted[0].Sender)
	assert.Empty(t, w.sender.sent)
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundRateConCapture(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	w.neg.Status = model.StatusClosed

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate con attached",
		Body:    "Signed copy attached.",
		Headers: brokerHeaders("dispatch+42@gcdloads.com", "Rate con attached"),
		Attachments: []Attachment{{
			Filename:    "ratecon.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4 fake"),
		}},
	})
	require.NoError(t, err)

	path := w.negotiations.rateConPaths[42]
	require.NotEmpty(t, path)
	assert.Contains(t, path, "driver_7")
	assert.Contains(t, path, "neg_42_")
	assert.Empty(t, w.sender.sent)
	bodies := strings.Join(w.messages.bodies(), "\n")
	assert.Contains(t, bodies, "Rate confirmation received")
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestProcessInboundRateConRequiresClosedStatus(t *testing.T) {
	w := newInboundWorld(t)
	w.mock.ExpectBegin()
	w.mock.ExpectCommit()

	// A deal still waiting on its confirmation email is not ready to
	// accept a rate con; the attachment is ignored and only the inbound
	// message is logged.
	w.neg.Status = model.StatusClosedPendingEmail

	err := w.inbound.ProcessInbound(context.Background(), InboundEmail{
		From:    "broker@example.com",
		Subject: "Rate con attached",
		Body:    "Signed copy attached.",
		Headers: brokerHeaders("dispatch+42@gcdloads.com", "Rate con attached"),
		Attachments: []Attachment{{
			Filename:    "ratecon.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4 fake"),
		}},
	})
	require.NoError(t, err)

	assert.Empty(t, w.negotiations.rateConPaths)
	require.Len(t, w.messages.inserted, 1)
	assert.Equal(t, model.SenderBroker, w.messages.inserted[0].Sender)
	assert.Empty(t, w.sender.sent)
	assert.NoError(t, w.mock.ExpectationsWereMet())
}

func TestBuildStoredBodyEmptyBodyPlaceholder(t *testing.T) {
	stored := buildStoredBody(InboundEmail{From: "a@b.com", Subject: "s", Body: "   "}, nil)
	assert.Contains(t, stored, "[empty message body]")
	assert.True(t, strings.HasPrefix(stored, "From: a@b.com\n"))
}
