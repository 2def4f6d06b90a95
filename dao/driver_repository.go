package dao

import (
	"database/sql"
	"strings"

	"gcd-backend/model"
	"gcd-backend/parser"
)

type DriverRepository struct {
	db DBTX
}

func NewDriverRepository(db DBTX) *DriverRepository {
	return &DriverRepository{db: db}
}

const driverColumns = `id, email, display_name, dispatch_handle, min_cpm, min_flat_rate,
		auto_negotiate, review_before_send, notify_on_decline`

func scanDriver(row rowScanner) (*model.Driver, error) {
	var d model.Driver
	var handle sql.NullString
	var minCPM, minFlat sql.NullFloat64

	err := row.Scan(&d.ID, &d.Email, &d.DisplayName, &handle, &minCPM, &minFlat,
		&d.AutoNegotiate, &d.ReviewBeforeSend, &d.NotifyOnDecline)
	if err != nil {
		return nil, err
	}
	if handle.Valid {
		d.DispatchHandle = &handle.String
	}
	if minCPM.Valid {
		d.MinCPM = &minCPM.Float64
	}
	if minFlat.Valid {
		d.MinFlatRate = &minFlat.Float64
	}
	return &d, nil
}

func (r *DriverRepository) GetByID(id int64) (*model.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ?`
	d, err := scanDriver(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FindByHandle resolves a driver by display name or dispatch handle.
// Exact lowercase match first, then a normalized (non-alphanumeric
// stripped) comparison over all drivers.
func (r *DriverRepository) FindByHandle(handle string) (*model.Driver, error) {
	candidate := strings.ToLower(strings.TrimSpace(handle))
	if candidate == "" {
		return nil, nil
	}

	query := `SELECT ` + driverColumns + ` FROM drivers
		WHERE LOWER(display_name) = ? OR LOWER(dispatch_handle) = ?
		ORDER BY id ASC LIMIT 1`
	d, err := scanDriver(r.db.QueryRow(query, candidate, candidate))
	if err == nil {
		return d, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	normalized := parser.NormalizeHandle(candidate)
	if normalized == "" {
		return nil, nil
	}

	rows, err := r.db.Query(`SELECT ` + driverColumns + ` FROM drivers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		if parser.NormalizeHandle(d.DisplayName) == normalized {
			return d, nil
		}
		if d.DispatchHandle != nil && parser.NormalizeHandle(*d.DispatchHandle) == normalized {
			return d, nil
		}
	}
	return nil, rows.Err()
}
