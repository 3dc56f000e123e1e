package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, amount, direction, expiry_time, status, outcome, created_at, completed_at`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		t       domain.Trade
		outcome *string
	)
	if err := row.Scan(
		&t.ID, &t.Amount, &t.Direction, &t.ExpiryTime,
		&t.Status, &outcome, &t.CreatedAt, &t.CompletedAt,
	); err != nil {
		return domain.Trade{}, err
	}
	if outcome != nil {
		t.Outcome = domain.Outcome(*outcome)
	}
	return t, nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// nullableOutcome maps the empty outcome to SQL NULL so the schema-level
// status/outcome consistency check holds.
func nullableOutcome(o domain.Outcome) *string {
	if o == domain.OutcomeNone {
		return nil
	}
	s := string(o)
	return &s
}

// Create inserts a new trade row.
func (s *TradeStore) Create(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (id, amount, direction, expiry_time, status, outcome, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Amount, t.Direction, t.ExpiryTime,
		t.Status, nullableOutcome(t.Outcome), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create trade: %w", err)
	}
	return nil
}

// GetByID returns a single trade, or domain.ErrNotFound.
func (s *TradeStore) GetByID(ctx context.Context, id string) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE id = $1`, id)

	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trade{}, domain.ErrNotFound
		}
		return domain.Trade{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return t, nil
}

// ListByStatus returns trades in the given status, most recently created
// first.
func (s *TradeStore) ListByStatus(ctx context.Context, status domain.TradeStatus, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE status = $1 ORDER BY created_at DESC`
	args := []any{status}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by status %s: %w", status, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by status %s: %w", status, err)
	}
	return trades, nil
}

// Complete performs the single conditional update that settles a trade. The
// status = 'live' guard means a duplicate fire, a retry, or a concurrent
// resolver leaves exactly one winner; everyone else sees ErrAlreadyCompleted.
func (s *TradeStore) Complete(ctx context.Context, id string, outcome domain.Outcome, completedAt time.Time) (domain.Trade, error) {
	const query = `
		UPDATE trades
		SET status = $2, outcome = $3, completed_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + tradeSelectCols

	row := s.pool.QueryRow(ctx, query,
		id, domain.StatusCompleted, string(outcome), completedAt, domain.StatusLive)

	t, err := scanTrade(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, fmt.Errorf("postgres: complete trade %s: %w", id, err)
	}

	// No live row matched: either the trade is gone or it was settled already.
	if _, getErr := s.GetByID(ctx, id); getErr != nil {
		return domain.Trade{}, getErr
	}
	return domain.Trade{}, domain.ErrAlreadyCompleted
}

// ListCompletedBefore returns completed trades settled strictly before the
// cutoff, oldest first, for archival.
func (s *TradeStore) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE status = $1 AND completed_at < $2
		 ORDER BY completed_at ASC`,
		domain.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list completed before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteCompletedBefore prunes completed trades settled before the cutoff and
// returns the number deleted. Live trades never match the predicate.
func (s *TradeStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trades WHERE status = $1 AND completed_at < $2`,
		domain.StatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete completed before: %w", err)
	}
	return tag.RowsAffected(), nil
}
