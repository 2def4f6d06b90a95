package dao

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcd-backend/model"
)

func TestMessageInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	msg := &model.Message{
		ID:            "01J5ZX6M2T000000000000000A",
		NegotiationID: 42,
		Sender:        model.SenderBroker,
		Body:          "We can do $3,200 all-in",
		Timestamp:     time.Now(),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(msg.ID, msg.NegotiationID, msg.Sender, msg.Body, false, msg.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMessageRepository(db)
	require.NoError(t, repo.Insert(msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageExistsExact(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM messages")).
		WithArgs(int64(42), model.SenderBroker, "body").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM messages")).
		WithArgs(int64(42), model.SenderBroker, "other").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	repo := NewMessageRepository(db)

	exists, err := repo.ExistsExact(42, model.SenderBroker, "body")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsExact(42, model.SenderBroker, "other")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageListByNegotiation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "negotiation_id", "sender", "body", "is_read", "timestamp"}).
		AddRow("01A", int64(42), model.SenderBroker, "offer", false, now).
		AddRow("01B", int64(42), model.SenderSystem, "decision", true, now)
	mock.ExpectQuery("FROM messages WHERE negotiation_id").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	repo := NewMessageRepository(db)
	msgs, err := repo.ListByNegotiation(42)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderBroker, msgs[0].Sender)
	assert.NoError(t, mock.ExpectationsWereMet())
}
