package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/dropxhq/dropx/service/wallet"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Store archives operation outcomes in Postgres. It satisfies the
// console's Recorder interface.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a connection pool against databaseURL and verifies it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies the operations schema. Statements are idempotent,
// so it is safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Record inserts one completed operation.
func (s *Store) Record(ctx context.Context, op wallet.OperationRecord) error {
	occurredAt := op.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO operations (
			kind, network, wallet_address, signature,
			outcome, attempts, amount, recipient, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		op.Kind,
		op.Network,
		op.Wallet,
		op.Signature,
		op.Outcome,
		op.Attempts,
		op.Amount,
		op.Recipient,
		occurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

// ListOperationsParams constrains an archive listing.
type ListOperationsParams struct {
	Wallet  string
	Network string
	Limit   int32
	Offset  int32
}

// ListOperations returns archived operations for a wallet on a network,
// newest first.
func (s *Store) ListOperations(ctx context.Context, params ListOperationsParams) ([]wallet.OperationRecord, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT kind, network, wallet_address, signature,
		       outcome, attempts, amount, recipient, occurred_at
		FROM operations
		WHERE wallet_address = $1 AND network = $2
		ORDER BY occurred_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		params.Wallet,
		params.Network,
		limit,
		params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var records []wallet.OperationRecord
	for rows.Next() {
		var op wallet.OperationRecord
		if err := rows.Scan(
			&op.Kind,
			&op.Network,
			&op.Wallet,
			&op.Signature,
			&op.Outcome,
			&op.Attempts,
			&op.Amount,
			&op.Recipient,
			&op.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		records = append(records, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}

	return records, nil
}

// CountOperations returns the number of archived operations for a wallet
// on a network.
func (s *Store) CountOperations(ctx context.Context, walletAddress, network string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM operations
		WHERE wallet_address = $1 AND network = $2`,
		walletAddress,
		network,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}
