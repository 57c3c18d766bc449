package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/clock"
	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/pkg/xshin"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPollInterval sets the polling interval
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// WithArchiveDir keeps a copy of every fetched blob under dir
func WithArchiveDir(dir string) Option {
	return func(s *Service) { s.archiveDir = dir }
}

// WithDiagnostics sets the sink that receives decode diagnostics for each blob kind
func WithDiagnostics(sinkFor func(xshin.BlobKind) bincode.Sink) Option {
	return func(s *Service) { s.sinkFor = sinkFor }
}

// Service syncs the newest pool once, then polls for newer ones
// -------------------------------------------------------------
type Service struct {
	api          Client
	store        Store
	clock        Clock
	pollInterval time.Duration
	archiveDir   string
	sinkFor      func(xshin.BlobKind) bincode.Sink
	events       chan Event
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock, a 10m poll interval, no archive and discards diagnostics.
func NewService(api Client, store Store, opts ...Option) *Service {
	s := &Service{
		api:          api,
		store:        store,
		clock:        clock.SystemClock{},
		pollInterval: DefaultPollInterval,
		sinkFor:      func(xshin.BlobKind) bincode.Sink { return bincode.Discard },
		events:       make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scraper and returns the events channel and done channel.
//
// Shutdown pattern:
//  1. Cancel context to request shutdown: cancel()
//  2. Service stops producing events and closes events channel
//  3. Wait for complete shutdown: <-done
//
// The context signals when to stop, the done channel confirms when stopped.
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

// run performs the initial sync and then polls, respecting context cancellation
func (s *Service) run(ctx context.Context) {
	s.syncAndReport(ctx)

	s.events <- PollingStarted{Interval: s.pollInterval}
	for {
		select {
		case <-ctx.Done():
			s.events <- PollingShutdown{Reason: ctx.Err()}
			return
		case <-s.clock.After(s.pollInterval):
			s.syncAndReport(ctx)
		}
	}
}

func (s *Service) syncAndReport(ctx context.Context) {
	runID := uuid.New()
	start := s.clock.Now()

	result, err := s.syncPool(ctx, runID)
	if err != nil {
		s.events <- SyncFailed{RunID: runID, Err: err}
		return
	}
	if result.Skipped {
		s.events <- SyncSkipped{RunID: runID, PoolID: result.PoolID}
		return
	}
	s.events <- SyncCompleted{
		RunID:    runID,
		Result:   result,
		Duration: clock.Since(s.clock, start),
	}
}

// syncPool stores the newest pool unless it is the one recorded by the checkpoint.
//
// An overview that cannot be decoded fails the sync, since it carries the
// epoch every row is keyed by. A voter blob that cannot be decoded is reported
// and the other one is still stored. The checkpoint only advances when every
// row was saved, so a partially stored pool is retried on the next poll.
func (s *Service) syncPool(ctx context.Context, runID uuid.UUID) (SyncResult, error) {
	select {
	case <-ctx.Done():
		return SyncResult{}, ctx.Err()
	default:
	}

	checkpoint, err := s.store.LastPoolID(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrCheckpointRetrieval, err)
	}

	poolID, err := s.api.NewestPoolID(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrAPIRequestFailed, err)
	}
	if poolID == checkpoint {
		return SyncResult{PoolID: poolID, Skipped: true}, nil
	}

	s.events <- SyncStarted{
		RunID:      runID,
		PoolID:     poolID,
		Checkpoint: checkpoint,
		StartedAt:  s.clock.Now(),
	}

	blobs, err := s.fetchBlobs(ctx, poolID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrAPIRequestFailed, err)
	}
	for _, kind := range xshin.BlobKinds {
		s.events <- BlobFetched{RunID: runID, Kind: kind, Bytes: len(blobs[kind])}
		if err := s.archive(poolID, kind, blobs[kind]); err != nil {
			s.events <- BlobArchiveFailed{RunID: runID, Kind: kind, Err: err}
		}
	}

	overview, err := shinobi.DecodeOverview(blobs[xshin.BlobOverview], s.decodeOpts(xshin.BlobOverview)...)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrOverviewDecode, err)
	}

	pool, nonPool := s.decodeVoters(runID, blobs)
	if pool == nil && nonPool == nil {
		return SyncResult{}, ErrNoVoters
	}

	for _, key := range OverlappingVoters(pool, nonPool) {
		s.events <- VoterInBothBlobs{RunID: runID, VoteAccount: key}
	}

	result := SyncResult{PoolID: poolID, Epoch: overview.Epoch}
	for _, row := range BuildScores(overview.Epoch, pool, nonPool) {
		if err := s.store.SaveScore(ctx, row); err != nil {
			result.Failed++
			s.events <- RowSaveFailed{
				RunID:       runID,
				VoteAccount: row.VoteAccount,
				Err:         fmt.Errorf("%w: %w", ErrSaveFailed, err),
			}
			continue
		}
		result.Saved++
	}

	if result.Failed > 0 {
		return result, nil
	}
	if err := s.store.MarkProcessed(ctx, poolID, overview.Epoch); err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
	}
	return result, nil
}

// fetchBlobs downloads every blob of the pool concurrently
func (s *Service) fetchBlobs(ctx context.Context, poolID string) (map[xshin.BlobKind][]byte, error) {
	var mu sync.Mutex
	blobs := make(map[xshin.BlobKind][]byte, len(xshin.BlobKinds))

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range xshin.BlobKinds {
		g.Go(func() error {
			blob, err := s.api.FetchBlob(gctx, poolID, kind)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", kind, err)
			}
			mu.Lock()
			blobs[kind] = blob
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}

func (s *Service) decodeVoters(runID uuid.UUID, blobs map[xshin.BlobKind][]byte) (*shinobi.Pool, *shinobi.NonPoolVoters) {
	var (
		pool    *shinobi.Pool
		nonPool *shinobi.NonPoolVoters
	)

	if p, err := shinobi.DecodePool(blobs[xshin.BlobPool], s.decodeOpts(xshin.BlobPool)...); err != nil {
		s.events <- BlobDecodeFailed{RunID: runID, Kind: xshin.BlobPool, Err: err}
	} else {
		pool = &p
		s.events <- BlobDecoded{RunID: runID, Kind: xshin.BlobPool, Stats: p.Stats}
	}

	if n, err := shinobi.DecodeNonPoolVoters(blobs[xshin.BlobNonPoolVoters], s.decodeOpts(xshin.BlobNonPoolVoters)...); err != nil {
		s.events <- BlobDecodeFailed{RunID: runID, Kind: xshin.BlobNonPoolVoters, Err: err}
	} else {
		nonPool = &n
		s.events <- BlobDecoded{RunID: runID, Kind: xshin.BlobNonPoolVoters, Stats: n.Stats}
	}

	return pool, nonPool
}

func (s *Service) decodeOpts(kind xshin.BlobKind) []bincode.Option {
	return []bincode.Option{bincode.WithSink(s.sinkFor(kind))}
}

// archive writes blob to <dir>/<kind>_<poolID>.bin when archiving is enabled
func (s *Service) archive(poolID string, kind xshin.BlobKind, blob []byte) error {
	if s.archiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}
	path := filepath.Join(s.archiveDir, xshin.ArchiveName(poolID, kind))
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}
	return nil
}
