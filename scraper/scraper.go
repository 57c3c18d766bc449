package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/trillium/shinobi/pkg/clock"
	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/pkg/xshin"
)

// Sentinel errors for failure cases
var (
	ErrCheckpointRetrieval = errors.New("checkpoint retrieval failed")
	ErrAPIRequestFailed    = errors.New("API request failed")
	ErrOverviewDecode      = errors.New("overview decode failed")
	ErrNoVoters            = errors.New("neither voter blob could be decoded")
	ErrSaveFailed          = errors.New("save failed")
	ErrCheckpointFailed    = errors.New("checkpoint update failed")
	ErrArchiveFailed       = errors.New("blob archive failed")
)

// Default configuration values
const (
	DefaultPollInterval = 10 * time.Minute
)

// Client fetches pool blobs from the scoring service
// ---------------------------------------------------
type Client interface {
	NewestPoolID(ctx context.Context) (string, error)
	FetchBlob(ctx context.Context, poolID string, kind xshin.BlobKind) ([]byte, error)
}

// Store provides persistence operations for validator scores
type Store interface {
	// LastPoolID returns the id of the last fully stored pool, "" if none
	LastPoolID(ctx context.Context) (string, error)
	// SaveScore upserts one validator row keyed by vote account and epoch
	SaveScore(ctx context.Context, score ValidatorScore) error
	// MarkProcessed records poolID as fully stored
	MarkProcessed(ctx context.Context, poolID string, epoch uint64) error
}

// SyncResult contains the results of one pool sync
type SyncResult struct {
	PoolID  string
	Epoch   uint64
	Saved   int
	Failed  int
	Skipped bool
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock = clock.Clock

// Event represents a service lifecycle event
// ------------------------------------------
type Event any

type SyncStarted struct {
	RunID      uuid.UUID
	PoolID     string
	Checkpoint string
	StartedAt  time.Time
}

type SyncSkipped struct {
	RunID  uuid.UUID
	PoolID string
}

type BlobFetched struct {
	RunID uuid.UUID
	Kind  xshin.BlobKind
	Bytes int
}

type BlobArchiveFailed struct {
	RunID uuid.UUID
	Kind  xshin.BlobKind
	Err   error
}

type BlobDecoded struct {
	RunID uuid.UUID
	Kind  xshin.BlobKind
	Stats shinobi.VoterStats
}

type BlobDecodeFailed struct {
	RunID uuid.UUID
	Kind  xshin.BlobKind
	Err   error
}

// VoterInBothBlobs reports a validator listed in the pool and non-pool blobs.
// Its pool record is the one stored.
type VoterInBothBlobs struct {
	RunID       uuid.UUID
	VoteAccount solana.PublicKey
}

type RowSaveFailed struct {
	RunID       uuid.UUID
	VoteAccount solana.PublicKey
	Err         error
}

type SyncCompleted struct {
	RunID    uuid.UUID
	Result   SyncResult
	Duration time.Duration
}

type SyncFailed struct {
	RunID uuid.UUID
	Err   error
}

type PollingStarted struct {
	Interval time.Duration
}

type PollingShutdown struct {
	Reason error // Why shutdown occurred (ctx.Err())
}
