package dao

import (
	"gcd-backend/model"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(msg *model.Message) error {
	query := `INSERT INTO messages (id, negotiation_id, sender, body, is_read, timestamp) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, msg.ID, msg.NegotiationID, msg.Sender, msg.Body, msg.IsRead, msg.Timestamp)
	return err
}

// ExistsExact reports whether an identical body is already logged for the
// negotiation and sender. This is the inbound dedup key: the comparison
// is over the exact stored envelope text.
func (r *MessageRepository) ExistsExact(negotiationID int64, sender, body string) (bool, error) {
	query := `SELECT COUNT(1) FROM messages WHERE negotiation_id = ? AND sender = ? AND body = ?`
	var count int
	if err := r.db.QueryRow(query, negotiationID, sender, body).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MessageRepository) ListByNegotiation(negotiationID int64) ([]model.Message, error) {
	query := `SELECT id, negotiation_id, sender, body, is_read, timestamp
		FROM messages WHERE negotiation_id = ? ORDER BY timestamp ASC, id ASC`
	rows, err := r.db.Query(query, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.NegotiationID, &m.Sender, &m.Body, &m.IsRead, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
