package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paystream-hq/payflow/pkg/models"
)

// PostgresStore persists transaction records in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS transaction_records (
    id          TEXT NOT NULL,
    tx_hash     TEXT PRIMARY KEY,
    from_addr   TEXT NOT NULL,
    to_addr     TEXT NOT NULL,
    amount      TEXT NOT NULL,
    currency    TEXT NOT NULL,
    status      TEXT NOT NULL,
    fulfillment JSONB,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transaction_records_status_idx ON transaction_records (status);
`

// NewPostgresStore connects to Postgres using the DSN and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Create(ctx context.Context, record *models.TransactionRecord) error {
	var fulfillment []byte
	if record.Fulfillment != nil {
		var err error
		fulfillment, err = json.Marshal(record.Fulfillment)
		if err != nil {
			return fmt.Errorf("failed to encode fulfillment metadata: %v", err)
		}
	}

	_, err := p.pool.Exec(ctx, `
INSERT INTO transaction_records (id, tx_hash, from_addr, to_addr, amount, currency, status, fulfillment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
`, record.ID, record.TxHash, record.From, record.To, record.Amount, record.Currency, record.Status, fulfillment)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w for hash %s", ErrDuplicateRecord, record.TxHash)
	}
	return err
}

func (p *PostgresStore) FindByHash(ctx context.Context, txHash string) (*models.TransactionRecord, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, tx_hash, from_addr, to_addr, amount, currency, status, fulfillment, created_at, updated_at
FROM transaction_records
WHERE tx_hash = $1
`, txHash)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, txHash string, status models.TxStatus) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE transaction_records SET status = $2, updated_at = now() WHERE tx_hash = $1
`, txHash, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no record for hash %s", txHash)
	}
	return nil
}

// TransitionStatus relies on the conditional UPDATE being atomic per row,
// which is what makes the fulfillment gate race-free across replicas.
func (p *PostgresStore) TransitionStatus(ctx context.Context, txHash string, from, to models.TxStatus) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
UPDATE transaction_records SET status = $3, updated_at = now() WHERE tx_hash = $1 AND status = $2
`, txHash, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) ListByStatus(ctx context.Context, status models.TxStatus) ([]*models.TransactionRecord, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, tx_hash, from_addr, to_addr, amount, currency, status, fulfillment, created_at, updated_at
FROM transaction_records
WHERE status = $1
ORDER BY created_at
`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TransactionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	var fulfillment []byte
	if err := row.Scan(
		&record.ID, &record.TxHash, &record.From, &record.To,
		&record.Amount, &record.Currency, &record.Status,
		&fulfillment, &record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(fulfillment) > 0 {
		record.Fulfillment = &models.FulfillmentMetadata{}
		if err := json.Unmarshal(fulfillment, record.Fulfillment); err != nil {
			return nil, fmt.Errorf("failed to decode fulfillment metadata: %v", err)
		}
	}
	return &record, nil
}
