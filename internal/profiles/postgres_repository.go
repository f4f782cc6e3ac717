package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/advisor-match/internal/identity"
)

// PgxPool is the subset of pgxpool.Pool used here.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const profileColumns = `id, user_type, name, email, firm_id, headline, timezone, chat_enabled, created_at, updated_at`

// PostgresRepository stores profiles in Postgres.
type PostgresRepository struct {
	pool PgxPool
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: get: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	query := `
		INSERT INTO profiles (id, user_type, name, email, firm_id, headline, timezone, chat_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_type = EXCLUDED.user_type,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			firm_id = EXCLUDED.firm_id,
			headline = EXCLUDED.headline,
			timezone = EXCLUDED.timezone,
			chat_enabled = EXCLUDED.chat_enabled,
			updated_at = now()
		RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		p.ID, string(p.Type), p.Name, p.Email, p.FirmID, p.Headline, p.Timezone, p.ChatEnabled,
	).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, fmt.Errorf("profiles: upsert: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListAdvisors(ctx context.Context, query string) ([]Profile, error) {
	sql := `SELECT ` + profileColumns + ` FROM profiles WHERE user_type = 'advisor'`
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		sql += ` AND (name ILIKE $1 OR headline ILIKE $1)`
		args = append(args, "%"+q+"%")
	}
	sql += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("profiles: list advisors: %w", err)
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profiles: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p        Profile
		userType string
	)
	err := row.Scan(&p.ID, &userType, &p.Name, &p.Email, &p.FirmID, &p.Headline, &p.Timezone, &p.ChatEnabled, &p.CreatedAt, &p.UpdatedAt)
	p.Type = identity.UserType(userType)
	p.Complete = p.Name != "" && p.Email != ""
	return p, err
}
