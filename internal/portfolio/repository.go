package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

// PostgresStore is the PostgreSQL-backed HoldingStore, used when a database
// URL is configured. Satisfies the same contract as MemoryStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the holdings table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS holdings (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			buy_price DOUBLE PRECISION NOT NULL,
			buy_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create holdings table: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]contracts.Holding, error) {
	query := `
		SELECT id, symbol, quantity, buy_price, buy_date
		FROM holdings
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []contracts.Holding
	for rows.Next() {
		var h contracts.Holding
		var buyDate *time.Time
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.BuyPrice, &buyDate); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.BuyDate = buyDate
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*contracts.Holding, error) {
	query := `
		SELECT id, symbol, quantity, buy_price, buy_date
		FROM holdings
		WHERE id = $1
	`
	var h contracts.Holding
	var buyDate *time.Time
	err := s.pool.QueryRow(ctx, query, id).Scan(&h.ID, &h.Symbol, &h.Quantity, &h.BuyPrice, &buyDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	h.BuyDate = buyDate
	return &h, nil
}

func (s *PostgresStore) Add(ctx context.Context, h contracts.Holding) (*contracts.Holding, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))

	query := `
		INSERT INTO holdings (id, symbol, quantity, buy_price, buy_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, h.ID, h.Symbol, h.Quantity, h.BuyPrice, h.BuyDate); err != nil {
		return nil, fmt.Errorf("failed to insert holding: %w", err)
	}
	return &h, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, h contracts.Holding) (*contracts.Holding, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.Symbol != "" {
		existing.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	}
	if h.Quantity > 0 {
		existing.Quantity = h.Quantity
	}
	if h.BuyPrice > 0 {
		existing.BuyPrice = h.BuyPrice
	}
	if h.BuyDate != nil {
		existing.BuyDate = h.BuyDate
	}

	query := `
		UPDATE holdings
		SET symbol = $2, quantity = $3, buy_price = $4, buy_date = $5
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, id, existing.Symbol, existing.Quantity, existing.BuyPrice, existing.BuyDate); err != nil {
		return nil, fmt.Errorf("failed to update holding: %w", err)
	}
	return existing, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM holdings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM holdings"); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	return nil
}
