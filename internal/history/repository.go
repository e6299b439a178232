package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested summary was not found.
var ErrNotFound = errors.New("summary not found")

// Record is a stored Summary.
type Record struct {
	ID          int             `json:"id"`
	SummaryDate time.Time       `json:"summaryDate"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for summaries, one per day.
type Repository interface {
	Save(ctx context.Context, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context) (*Record, error)
	GetByDate(ctx context.Context, date time.Time) (*Record, error)
	GetNearestBefore(ctx context.Context, date time.Time) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL history repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectRecord = `SELECT id, summary_date, data, created_at FROM portfolio_history`

func (r *PgRepository) Save(ctx context.Context, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_history (summary_date, data)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (summary_date)
		 DO UPDATE SET data = $2::jsonb, created_at = NOW()`,
		date, data)
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

func (r *PgRepository) getOne(ctx context.Context, what, query string, args ...any) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.SummaryDate, &rec.Data, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting %s summary: %w", what, err)
	}
	return &rec, nil
}

func (r *PgRepository) GetLatest(ctx context.Context) (*Record, error) {
	return r.getOne(ctx, "latest", selectRecord+` ORDER BY summary_date DESC LIMIT 1`)
}

func (r *PgRepository) GetByDate(ctx context.Context, date time.Time) (*Record, error) {
	return r.getOne(ctx, "dated", selectRecord+` WHERE summary_date = $1`, date)
}

func (r *PgRepository) GetNearestBefore(ctx context.Context, date time.Time) (*Record, error) {
	return r.getOne(ctx, "nearest",
		selectRecord+` WHERE summary_date <= $1 ORDER BY summary_date DESC LIMIT 1`, date)
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, selectRecord+` ORDER BY summary_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SummaryDate, &rec.Data, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}
	return records, nil
}
