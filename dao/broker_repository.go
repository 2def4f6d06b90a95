package dao

import (
	"database/sql"

	"gcd-backend/model"
)

type BrokerEmailRepository struct {
	db DBTX
}

func NewBrokerEmailRepository(db DBTX) *BrokerEmailRepository {
	return &BrokerEmailRepository{db: db}
}

// BestByMCNumber returns the highest-confidence contact address for a
// carrier, nil when the carrier has none on file.
func (r *BrokerEmailRepository) BestByMCNumber(mcNumber string) (*model.BrokerEmail, error) {
	query := `SELECT id, mc_number, email, source, confidence
		FROM webwise_broker_emails WHERE mc_number = ?
		ORDER BY confidence DESC LIMIT 1`

	var b model.BrokerEmail
	var source sql.NullString
	var confidence sql.NullFloat64

	err := r.db.QueryRow(query, mcNumber).Scan(&b.ID, &b.MCNumber, &b.Email, &source, &confidence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if source.Valid {
		b.Source = &source.String
	}
	if confidence.Valid {
		b.Confidence = &confidence.Float64
	}
	return &b, nil
}
