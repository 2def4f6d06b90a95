package dao

import (
	"database/sql"

	"gcd-backend/model"
)

type NegotiationRepository struct {
	db DBTX
}

func NewNegotiationRepository(db DBTX) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

const negotiationColumns = `id, load_id, driver_id, broker_mc_number, broker_email, status, current_offer,
		distance_miles, rate_con_path, pending_review_subject, pending_review_body,
		pending_review_action, pending_review_price, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNegotiation(row rowScanner) (*model.Negotiation, error) {
	var n model.Negotiation
	var brokerEmail, rateConPath, prSubject, prBody, prAction sql.NullString
	var currentOffer, prPrice sql.NullFloat64

	err := row.Scan(&n.ID, &n.LoadID, &n.DriverID, &n.BrokerMCNumber, &brokerEmail, &n.Status,
		&currentOffer, &n.DistanceMiles, &rateConPath, &prSubject, &prBody, &prAction, &prPrice,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if brokerEmail.Valid {
		n.BrokerEmail = &brokerEmail.String
	}
	if currentOffer.Valid {
		n.CurrentOffer = &currentOffer.Float64
	}
	if rateConPath.Valid {
		n.RateConPath = &rateConPath.String
	}
	if prSubject.Valid {
		n.PendingReviewSubject = &prSubject.String
	}
	if prBody.Valid {
		n.PendingReviewBody = &prBody.String
	}
	if prAction.Valid {
		n.PendingReviewAction = &prAction.String
	}
	if prPrice.Valid {
		n.PendingReviewPrice = &prPrice.Float64
	}
	return &n, nil
}

func (r *NegotiationRepository) GetByID(id int64) (*model.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE id = ?`
	n, err := scanNegotiation(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// LatestByDriverAndLoad returns the most recent negotiation for the pair.
func (r *NegotiationRepository) LatestByDriverAndLoad(driverID, loadID int64) (*model.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations
		WHERE driver_id = ? AND load_id = ?
		ORDER BY id DESC LIMIT 1`
	n, err := scanNegotiation(r.db.QueryRow(query, driverID, loadID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ActiveByLoad returns every negotiation for a load that has not reached
// the terminal signed state, newest first.
func (r *NegotiationRepository) ActiveByLoad(loadID int64) ([]model.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations
		WHERE load_id = ? AND status NOT IN (?)
		ORDER BY id DESC`
	rows, err := r.db.Query(query, loadID, model.StatusRateConSigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *NegotiationRepository) UpdateStatus(id int64, status string) error {
	_, err := r.db.Exec(`UPDATE negotiations SET status = ? WHERE id = ?`, status, id)
	return err
}

func (r *NegotiationRepository) UpdateCurrentOffer(id int64, offer float64) error {
	_, err := r.db.Exec(`UPDATE negotiations SET current_offer = ? WHERE id = ?`, offer, id)
	return err
}

func (r *NegotiationRepository) SetPendingReview(id int64, subject, body, action string, price *float64) error {
	var priceValue sql.NullFloat64
	if price != nil {
		priceValue = sql.NullFloat64{Float64: *price, Valid: true}
	}
	_, err := r.db.Exec(`UPDATE negotiations
		SET pending_review_subject = ?, pending_review_body = ?, pending_review_action = ?, pending_review_price = ?
		WHERE id = ?`,
		subject, body, action, priceValue, id)
	return err
}

func (r *NegotiationRepository) ClearPendingReview(id int64) error {
	_, err := r.db.Exec(`UPDATE negotiations
		SET pending_review_subject = NULL, pending_review_body = NULL,
		    pending_review_action = NULL, pending_review_price = NULL
		WHERE id = ?`, id)
	return err
}

// SetRateCon records a received rate confirmation document.
func (r *NegotiationRepository) SetRateCon(id int64, path string) error {
	_, err := r.db.Exec(`UPDATE negotiations SET status = ?, rate_con_path = ? WHERE id = ?`,
		model.StatusRateConReceived, path, id)
	return err
}
