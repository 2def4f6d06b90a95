package dao

import (
	"database/sql"
	"strings"

	"gcd-backend/model"
	"gcd-backend/parser"
)

type LoadRepository struct {
	db DBTX
}

func NewLoadRepository(db DBTX) *LoadRepository {
	return &LoadRepository{db: db}
}

const loadColumns = `id, ref_id, origin, destination, mc_number, source_platform, price`

func scanLoad(row rowScanner) (*model.Load, error) {
	var l model.Load
	var mc, source, price sql.NullString

	if err := row.Scan(&l.ID, &l.RefID, &l.Origin, &l.Destination, &mc, &source, &price); err != nil {
		return nil, err
	}
	if mc.Valid {
		l.MCNumber = &mc.String
	}
	if source.Valid {
		l.SourcePlatform = &source.String
	}
	if price.Valid {
		l.Price = &price.String
	}
	return &l, nil
}

func (r *LoadRepository) GetByID(id int64) (*model.Load, error) {
	query := `SELECT ` + loadColumns + ` FROM loads WHERE id = ?`
	l, err := scanLoad(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// FindByRef resolves a load by exact reference, then by a normalized
// comparison so "TS-123" also matches "ts 123".
func (r *LoadRepository) FindByRef(ref string) (*model.Load, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return nil, nil
	}

	l, err := scanLoad(r.db.QueryRow(`SELECT `+loadColumns+` FROM loads WHERE ref_id = ?`, raw))
	if err == nil {
		return l, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	normalized := parser.NormalizeLoadRef(raw)
	if normalized == "" {
		return nil, nil
	}

	query := `SELECT ` + loadColumns + ` FROM loads
		WHERE REGEXP_REPLACE(LOWER(ref_id), '[^a-z0-9]', '') = ?
		ORDER BY id DESC LIMIT 1`
	l, err = scanLoad(r.db.QueryRow(query, normalized))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
