package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krazyTry/gamma-go/gamma/events"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// Schema creates the swap_events table. u64 amounts are stored as NUMERIC
// since they may exceed BIGINT.
const Schema = `
CREATE TABLE IF NOT EXISTS swap_events (
	id                  BIGSERIAL PRIMARY KEY,
	pool_id             TEXT          NOT NULL,
	input_vault_before  NUMERIC(20,0) NOT NULL,
	output_vault_before NUMERIC(20,0) NOT NULL,
	input_amount        NUMERIC(20,0) NOT NULL,
	output_amount       NUMERIC(20,0) NOT NULL,
	input_transfer_fee  NUMERIC(20,0) NOT NULL,
	output_transfer_fee NUMERIC(20,0) NOT NULL,
	base_input          BOOLEAN       NOT NULL,
	dynamic_fee         NUMERIC(39,0) NOT NULL,
	recorded_at         TIMESTAMPTZ   NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS swap_events_pool_idx ON swap_events (pool_id, id);
`

const insertSwapEvent = `
	INSERT INTO swap_events (
		pool_id, input_vault_before, output_vault_before, input_amount, output_amount,
		input_transfer_fee, output_transfer_fee, base_input, dynamic_fee
	) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9::numeric)
`

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store persists swap events.
type Store struct {
	db    DB
	close func()
}

var _ events.Sink = (*Store)(nil)

// NewStore connects to dsn and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool, close: pool.Close}, nil
}

// New wraps an existing connection.
func New(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate swap_events: %w", err)
	}
	return nil
}

// Emit inserts a single event.
func (s *Store) Emit(ctx context.Context, e *state.SwapEvent) error {
	if _, err := s.db.Exec(ctx, insertSwapEvent, eventArgs(e)...); err != nil {
		return fmt.Errorf("insert swap event: %w", err)
	}
	return nil
}

// EmitBatch inserts events in one round trip.
func (s *Store) EmitBatch(ctx context.Context, evs []state.SwapEvent) error {
	if len(evs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range evs {
		batch.Queue(insertSwapEvent, eventArgs(&evs[i])...)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range evs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert swap event %d: %w", i, err)
		}
	}
	return nil
}

func eventArgs(e *state.SwapEvent) []any {
	return []any{
		e.PoolID.String(),
		u64(e.InputVaultBefore),
		u64(e.OutputVaultBefore),
		u64(e.InputAmount),
		u64(e.OutputAmount),
		u64(e.InputTransferFee),
		u64(e.OutputTransferFee),
		e.BaseInput,
		e.DynamicFee.String(),
	}
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
