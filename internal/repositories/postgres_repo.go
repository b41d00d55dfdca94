package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"cashbox-api/internal/models"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cash_boxes (
    id           TEXT PRIMARY KEY,
    collector_id TEXT NOT NULL,
    work_date    TEXT NOT NULL,
    status       TEXT NOT NULL,
    request_id   TEXT NOT NULL DEFAULT '',
    version      BIGINT NOT NULL,
    opened_at    TIMESTAMPTZ NOT NULL,
    record       JSONB NOT NULL,
    UNIQUE (collector_id, work_date)
);
CREATE TABLE IF NOT EXISTS opening_requests (
    id           TEXT PRIMARY KEY,
    collector_id TEXT NOT NULL,
    work_date    TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    record       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS opening_requests_pair_idx ON opening_requests (collector_id, work_date);
`

// PostgresRepository stores ledger records as JSONB documents next to the
// indexed key columns used by queries.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, log: log}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCashBox(ctx context.Context, id string) (*models.CashBox, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT record FROM cash_boxes WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	var box models.CashBox
	if err := json.Unmarshal(doc, &box); err != nil {
		return nil, fmt.Errorf("postgres: decode cash box %s: %w", id, err)
	}
	return &box, nil
}

func (r *PostgresRepository) PutCashBox(ctx context.Context, box *models.CashBox) error {
	next := *box
	next.Version = box.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return err
	}

	r.log.Debug("put cash box",
		zap.String("id", box.ID),
		zap.Int64("version", next.Version),
		zap.String("status", string(box.Status)),
	)

	if box.Version == 0 {
		_, err = r.pool.Exec(ctx, `
INSERT INTO cash_boxes (id, collector_id, work_date, status, request_id, version, opened_at, record)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			box.ID, box.CollectorID, box.WorkDate, string(box.Status), box.RequestID, next.Version, box.OpenedAt, doc,
		)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}
		box.Version = next.Version
		return nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE cash_boxes
SET status = $1, request_id = $2, version = $3, record = $4
WHERE id = $5 AND version = $6`,
		string(box.Status), box.RequestID, next.Version, doc, box.ID, box.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	box.Version = next.Version
	return nil
}

func (r *PostgresRepository) QueryCashBoxes(ctx context.Context, f CashBoxFilter) ([]models.CashBox, error) {
	where, args := cashBoxWhere(dollarPlaceholder, f)
	rows, err := r.pool.Query(ctx, `SELECT record FROM cash_boxes`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CashBox{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var box models.CashBox
		if err := json.Unmarshal(doc, &box); err != nil {
			return nil, fmt.Errorf("postgres: decode cash box: %w", err)
		}
		out = append(out, box)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetOpeningRequest(ctx context.Context, id string) (*models.OpeningRequest, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT record FROM opening_requests WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	var req models.OpeningRequest
	if err := json.Unmarshal(doc, &req); err != nil {
		return nil, fmt.Errorf("postgres: decode opening request %s: %w", id, err)
	}
	return &req, nil
}

func (r *PostgresRepository) PutOpeningRequest(ctx context.Context, req *models.OpeningRequest) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return err
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO opening_requests (id, collector_id, work_date, status, created_at, record)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, record = EXCLUDED.record`,
		req.ID, req.CollectorID, req.WorkDate, string(req.Status), createdAt, doc,
	)
	return err
}

func (r *PostgresRepository) QueryOpeningRequests(ctx context.Context, f RequestFilter) ([]models.OpeningRequest, error) {
	where, args := requestWhere(dollarPlaceholder, f)
	rows, err := r.pool.Query(ctx, `SELECT record FROM opening_requests`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.OpeningRequest{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var req models.OpeningRequest
		if err := json.Unmarshal(doc, &req); err != nil {
			return nil, fmt.Errorf("postgres: decode opening request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
