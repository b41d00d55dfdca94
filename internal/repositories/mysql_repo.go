package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"cashbox-api/internal/models"
)

const mysqlDuplicateEntry = 1062

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS cash_boxes (
    id           VARCHAR(36) PRIMARY KEY,
    collector_id VARCHAR(64) NOT NULL,
    work_date    VARCHAR(10) NOT NULL,
    status       VARCHAR(16) NOT NULL,
    request_id   VARCHAR(36) NOT NULL DEFAULT '',
    version      BIGINT NOT NULL,
    opened_at    DATETIME(6) NOT NULL,
    record       JSON NOT NULL,
    UNIQUE KEY cash_boxes_pair (collector_id, work_date)
)`,
	`CREATE TABLE IF NOT EXISTS opening_requests (
    id           VARCHAR(36) PRIMARY KEY,
    collector_id VARCHAR(64) NOT NULL,
    work_date    VARCHAR(10) NOT NULL,
    status       VARCHAR(16) NOT NULL,
    created_at   DATETIME(6) NOT NULL,
    record       JSON NOT NULL,
    KEY opening_requests_pair (collector_id, work_date)
)`,
}

// MySQLRepository is the database/sql flavour of the ledger store.
type MySQLRepository struct {
	db  *sql.DB
	log *zap.Logger
}

func NewMySQLRepository(db *sql.DB, log *zap.Logger) *MySQLRepository {
	return &MySQLRepository{db: db, log: log}
}

func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := debugExec(ctx, r.db, r.log, "EnsureSchema", stmt); err != nil {
			return fmt.Errorf("mysql: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *MySQLRepository) GetCashBox(ctx context.Context, id string) (*models.CashBox, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT record FROM cash_boxes WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	var box models.CashBox
	if err := json.Unmarshal(doc, &box); err != nil {
		return nil, fmt.Errorf("mysql: decode cash box %s: %w", id, err)
	}
	return &box, nil
}

func (r *MySQLRepository) PutCashBox(ctx context.Context, box *models.CashBox) error {
	next := *box
	next.Version = box.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return err
	}

	if box.Version == 0 {
		_, err = debugExec(ctx, r.db, r.log, "PutCashBox insert", `
INSERT INTO cash_boxes (id, collector_id, work_date, status, request_id, version, opened_at, record)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			box.ID, box.CollectorID, box.WorkDate, string(box.Status), box.RequestID, next.Version, box.OpenedAt.UTC(), doc,
		)
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}
		box.Version = next.Version
		return nil
	}

	res, err := debugExec(ctx, r.db, r.log, "PutCashBox update", `
UPDATE cash_boxes
SET status = ?, request_id = ?, version = ?, record = ?
WHERE id = ? AND version = ?`,
		string(box.Status), box.RequestID, next.Version, doc, box.ID, box.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	box.Version = next.Version
	return nil
}

func (r *MySQLRepository) QueryCashBoxes(ctx context.Context, f CashBoxFilter) ([]models.CashBox, error) {
	where, args := cashBoxWhere(questionPlaceholder, f)
	rows, err := debugQuery(ctx, r.db, r.log, "QueryCashBoxes", `SELECT record FROM cash_boxes`+where, args...)
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
			return nil, fmt.Errorf("mysql: decode cash box: %w", err)
		}
		out = append(out, box)
	}
	return out, rows.Err()
}

func (r *MySQLRepository) GetOpeningRequest(ctx context.Context, id string) (*models.OpeningRequest, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT record FROM opening_requests WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	var req models.OpeningRequest
	if err := json.Unmarshal(doc, &req); err != nil {
		return nil, fmt.Errorf("mysql: decode opening request %s: %w", id, err)
	}
	return &req, nil
}

func (r *MySQLRepository) PutOpeningRequest(ctx context.Context, req *models.OpeningRequest) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return err
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = debugExec(ctx, r.db, r.log, "PutOpeningRequest", `
INSERT INTO opening_requests (id, collector_id, work_date, status, created_at, record)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    status = VALUES(status),
    record = VALUES(record)`,
		req.ID, req.CollectorID, req.WorkDate, string(req.Status), createdAt.UTC(), doc,
	)
	return err
}

func (r *MySQLRepository) QueryOpeningRequests(ctx context.Context, f RequestFilter) ([]models.OpeningRequest, error) {
	where, args := requestWhere(questionPlaceholder, f)
	rows, err := debugQuery(ctx, r.db, r.log, "QueryOpeningRequests", `SELECT record FROM opening_requests`+where, args...)
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
			return nil, fmt.Errorf("mysql: decode opening request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
