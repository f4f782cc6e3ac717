package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used here.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `id, advisor_id, consumer_id, status, source, notes, created_at, updated_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Touch upserts on (advisor_id, consumer_id). The status only moves forward
// along the progression; lost leads reopen.
func (r *PostgresRepository) Touch(ctx context.Context, req TouchRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO leads (id, advisor_id, consumer_id, status, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (advisor_id, consumer_id) DO UPDATE SET
			status = CASE
				WHEN leads.status = 'lost'
					OR array_position($6::text[], leads.status) < array_position($6::text[], EXCLUDED.status)
				THEN EXCLUDED.status
				ELSE leads.status
			END,
			updated_at = now()
		RETURNING ` + leadColumns
	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		req.AdvisorID,
		req.ConsumerID,
		string(req.Status),
		string(req.Source),
		progression,
	)
	lead, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

func (r *PostgresRepository) ListByAdvisor(ctx context.Context, advisorID string, filter ListLeadsFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE advisor_id = $1`
	args := []any{advisorID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, notes *string) (*Lead, error) {
	query := `
		UPDATE leads
		SET status = $2, notes = COALESCE($3, notes), updated_at = now()
		WHERE id = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, string(status), notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: update status failed: %w", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead           Lead
		status, source string
	)
	if err := row.Scan(&lead.ID, &lead.AdvisorID, &lead.ConsumerID, &status, &source, &lead.Notes, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	lead.Status = Status(status)
	lead.Source = Source(source)
	return &lead, nil
}
