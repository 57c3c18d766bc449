package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/trillium/shinobi/cmd/scraper/config"
	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/logger"
	"github.com/trillium/shinobi/pkg/metrics"
	"github.com/trillium/shinobi/pkg/pgxdb"
	"github.com/trillium/shinobi/pkg/xshin"
	"github.com/trillium/shinobi/scraper"
	"github.com/trillium/shinobi/scraper/store/pgxstore"
)

func main() {
	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Database connection
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize store
	store, storeCloser := pgxstore.New(db)
	defer storeCloser()

	// HTTP client & xshin client
	httpClient := &http.Client{Timeout: cfg.HttpClientTimeout}
	xshinClient := xshin.NewClient(httpClient, cfg.XshinURL)

	// Create scraper service
	scraperService := scraper.NewService(
		xshinClient,
		store,
		scraper.WithPollInterval(cfg.PollInterval),
		scraper.WithArchiveDir(cfg.BlobArchiveDir),
		scraper.WithDiagnostics(func(kind xshin.BlobKind) bincode.Sink {
			return bincode.Tee(
				logger.NewDiagnosticSink(log, slog.String("blob", string(kind))),
				m.DiagnosticSink(string(kind)),
			)
		}),
	)

	// Operations endpoint
	opsDone := make(chan struct{})
	if cfg.MetricsAddr != "" {
		go func() {
			defer close(opsDone)
			log.InfoContext(ctx, "Serving metrics", slog.String("addr", cfg.MetricsAddr))
			handler := logger.NewMiddleware(log)(metrics.NewMux(reg))
			if err := metrics.Serve(ctx, cfg.MetricsAddr, handler); err != nil {
				log.ErrorContext(ctx, "Metrics server failed", slog.Any("error", err))
			}
		}()
	} else {
		close(opsDone)
	}

	// Start service
	log.InfoContext(ctx, "Starting shinobi scraper service",
		slog.String("xshinURL", cfg.XshinURL),
		slog.Duration("pollInterval", cfg.PollInterval),
		slog.String("archiveDir", cfg.BlobArchiveDir),
	)
	events, done := scraperService.Start(ctx)

	// Subscribe to events for logging and metrics
	subCloser := setupEventHandling(ctx, events, log, m)
	defer subCloser()

	// Wait for shutdown
	<-done
	stop()
	<-opsDone
	log.InfoContext(ctx, "Scraper service stopped gracefully")
}

// setupEventHandling logs every service event and records it in m
func setupEventHandling(ctx context.Context, events <-chan scraper.Event, log *slog.Logger, m *metrics.Metrics) func() {
	return scraper.NewSubscriber(events,
		scraper.OnSyncStarted(func(event scraper.SyncStarted) {
			log.InfoContext(ctx, "Sync started",
				slog.String("runID", event.RunID.String()),
				slog.String("poolID", event.PoolID),
				slog.String("checkpoint", event.Checkpoint),
				slog.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
			)
		}),
		scraper.OnSyncSkipped(func(event scraper.SyncSkipped) {
			m.SyncsTotal.WithLabelValues("skipped").Inc()
			log.InfoContext(ctx, "Pool already stored, nothing to do",
				slog.String("runID", event.RunID.String()),
				slog.String("poolID", event.PoolID),
			)
		}),
		scraper.OnBlobFetched(func(event scraper.BlobFetched) {
			m.BlobBytes.WithLabelValues(string(event.Kind)).Set(float64(event.Bytes))
			log.DebugContext(ctx, "Blob fetched",
				slog.String("runID", event.RunID.String()),
				slog.String("blob", string(event.Kind)),
				slog.Int("bytes", event.Bytes),
			)
		}),
		scraper.OnBlobArchiveFailed(func(event scraper.BlobArchiveFailed) {
			log.WarnContext(ctx, "Failed to archive blob",
				slog.String("runID", event.RunID.String()),
				slog.String("blob", string(event.Kind)),
				slog.Any("error", event.Err),
			)
		}),
		scraper.OnBlobDecoded(func(event scraper.BlobDecoded) {
			kind := string(event.Kind)
			m.VotersDecoded.WithLabelValues(kind).Set(float64(event.Stats.Decoded))
			m.RecordsSkipped.WithLabelValues(kind).Add(float64(event.Stats.Skipped))
			log.InfoContext(ctx, "Blob decoded",
				slog.String("runID", event.RunID.String()),
				slog.String("blob", kind),
				slog.Uint64("declared", event.Stats.Declared),
				slog.Int("decoded", event.Stats.Decoded),
				slog.Int("skipped", event.Stats.Skipped),
				slog.Int("duplicates", event.Stats.Duplicates),
				slog.Bool("truncated", event.Stats.Truncated),
			)
		}),
		scraper.OnBlobDecodeFailed(func(event scraper.BlobDecodeFailed) {
			m.BlobsFailed.WithLabelValues(string(event.Kind)).Inc()
			log.ErrorContext(ctx, "Blob could not be decoded",
				slog.String("runID", event.RunID.String()),
				slog.String("blob", string(event.Kind)),
				slog.Any("error", event.Err),
			)
		}),
		scraper.OnVoterInBothBlobs(func(event scraper.VoterInBothBlobs) {
			log.WarnContext(ctx, "Validator listed in both voter blobs, keeping pool record",
				slog.String("runID", event.RunID.String()),
				slog.String("voteAccount", event.VoteAccount.String()),
			)
		}),
		scraper.OnRowSaveFailed(func(event scraper.RowSaveFailed) {
			m.RowsFailed.Inc()
			log.ErrorContext(ctx, "Failed to save validator",
				slog.String("runID", event.RunID.String()),
				slog.String("voteAccount", event.VoteAccount.String()),
				slog.Any("error", event.Err),
			)
		}),
		scraper.OnSyncCompleted(func(event scraper.SyncCompleted) {
			m.SyncsTotal.WithLabelValues("completed").Inc()
			m.SyncDuration.Observe(event.Duration.Seconds())
			m.LastSyncTimestamp.SetToCurrentTime()
			m.Epoch.Set(float64(event.Result.Epoch))
			m.RowsSaved.Add(float64(event.Result.Saved))
			log.InfoContext(ctx, "Sync completed",
				slog.String("runID", event.RunID.String()),
				slog.String("poolID", event.Result.PoolID),
				slog.Uint64("epoch", event.Result.Epoch),
				slog.Int("saved", event.Result.Saved),
				slog.Int("failed", event.Result.Failed),
				slog.Duration("duration", event.Duration),
			)
		}),
		scraper.OnSyncFailed(func(event scraper.SyncFailed) {
			m.SyncsTotal.WithLabelValues("failed").Inc()
			log.ErrorContext(ctx, "Sync failed",
				slog.String("runID", event.RunID.String()),
				slog.Any("error", event.Err),
			)
		}),
		scraper.OnPollingStarted(func(event scraper.PollingStarted) {
			log.InfoContext(ctx, "Polling started",
				slog.Duration("interval", event.Interval),
			)
		}),
		scraper.OnPollingShutdown(func(event scraper.PollingShutdown) {
			log.InfoContext(ctx, "Polling stopped",
				slog.String("reason", event.Reason.Error()),
			)
		}),
	)
}
