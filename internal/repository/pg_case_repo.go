package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mavuno/agrolink/internal/domain"
)

type pgCaseRepository struct {
	pool *pgxpool.Pool
}

// NewPgCaseRepository returns a CaseRepository backed by PostgreSQL.
func NewPgCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &pgCaseRepository{pool: pool}
}

const caseColumns = `id, client_id, COALESCE(farmer_id, ''), crop, label, diagnosis, risk, created_at`

func (r *pgCaseRepository) Create(ctx context.Context, c *domain.DiagnosisCase) (*domain.DiagnosisCase, error) {
	diag, err := json.Marshal(c.Diagnosis)
	if err != nil {
		return nil, fmt.Errorf("marshal diagnosis: %w", err)
	}

	// ON CONFLICT keeps the first case for a client id; a replayed
	// submission then reads it back unchanged.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO diagnosis_cases (id, client_id, farmer_id, crop, label, diagnosis, risk, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (client_id) DO NOTHING`,
		c.ID, c.ClientID, c.FarmerID, c.Crop, c.Label, diag, c.Risk, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}

	return scanCase(r.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM diagnosis_cases WHERE client_id = $1`, c.ClientID))
}

func (r *pgCaseRepository) GetByID(ctx context.Context, id string) (*domain.DiagnosisCase, error) {
	c, err := scanCase(r.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM diagnosis_cases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *pgCaseRepository) List(ctx context.Context) ([]*domain.DiagnosisCase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+caseColumns+` FROM diagnosis_cases ORDER BY created_at DESC LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*domain.DiagnosisCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCase(row pgx.Row) (*domain.DiagnosisCase, error) {
	var (
		c    domain.DiagnosisCase
		diag []byte
	)
	if err := row.Scan(&c.ID, &c.ClientID, &c.FarmerID, &c.Crop, &c.Label, &diag, &c.Risk, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(diag, &c.Diagnosis); err != nil {
		return nil, fmt.Errorf("decode diagnosis: %w", err)
	}
	return &c, nil
}
