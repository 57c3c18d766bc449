package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trillium/shinobi/scraper"
	"github.com/trillium/shinobi/scraper/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrRowConversion    = errors.New("row conversion failed")
	ErrUpsertFailed     = errors.New("upsert failed")
	ErrCheckpointFailed = errors.New("checkpoint update failed")
	ErrLastPoolIDFailed = errors.New("failed to get last pool id")
)

// upsertScoreSQL overwrites every column except the key on conflict
var upsertScoreSQL = buildUpsertSQL()

const (
	lastPoolIDSQL = `SELECT pool_id FROM shinobi_checkpoint`

	markProcessedSQL = `
		INSERT INTO shinobi_checkpoint (single_row, pool_id, epoch) VALUES (TRUE, $1, $2)
		ON CONFLICT (single_row) DO UPDATE
		SET pool_id = EXCLUDED.pool_id, epoch = EXCLUDED.epoch, updated_at = CURRENT_TIMESTAMP`
)

// Store implements scraper.Store interface using pgx
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store with an existing connection pool
// Returns the store and a closer function
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// LastPoolID returns the id of the last fully stored pool, "" before the first sync
func (s *Store) LastPoolID(ctx context.Context) (string, error) {
	var poolID string
	err := s.pool.QueryRow(ctx, lastPoolIDSQL).Scan(&poolID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLastPoolIDFailed, err)
	}
	return poolID, nil
}

// SaveScore upserts one validator row keyed by (vote_account_pubkey, epoch)
func (s *Store) SaveScore(ctx context.Context, score scraper.ValidatorScore) error {
	row, err := dbrow.FromScraperScore(score)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRowConversion, err)
	}

	if _, err := s.pool.Exec(ctx, upsertScoreSQL, row.Args()...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpsertFailed, row.VoteAccount, err)
	}
	return nil
}

// MarkProcessed moves the checkpoint to poolID
func (s *Store) MarkProcessed(ctx context.Context, poolID string, epoch uint64) error {
	if _, err := s.pool.Exec(ctx, markProcessedSQL, poolID, epoch); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
	}
	return nil
}

func buildUpsertSQL() string {
	placeholders := make([]string, len(dbrow.Columns))
	var updates []string
	for i, col := range dbrow.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col == "vote_account_pubkey" || col == "epoch" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	updates = append(updates, "updated_at = CURRENT_TIMESTAMP")

	return fmt.Sprintf(
		"INSERT INTO shinobi_pool (%s) VALUES (%s) ON CONFLICT (vote_account_pubkey, epoch) DO UPDATE SET %s",
		strings.Join(dbrow.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}
