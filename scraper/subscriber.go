package scraper

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                 chan struct{}
	syncStartedHandler   func(SyncStarted)
	syncSkippedHandler   func(SyncSkipped)
	syncCompletedHandler func(SyncCompleted)
	syncFailedHandler    func(SyncFailed)
	blobFetchedHandler   func(BlobFetched)
	blobArchiveHandler   func(BlobArchiveFailed)
	blobDecodedHandler   func(BlobDecoded)
	blobFailedHandler    func(BlobDecodeFailed)
	bothBlobsHandler     func(VoterInBothBlobs)
	rowSaveFailedHandler func(RowSaveFailed)
	pollStartedHandler   func(PollingStarted)
	pollShutdownHandler  func(PollingShutdown)
}

// OnSyncStarted sets the handler for SyncStarted events
func OnSyncStarted(fn func(SyncStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.syncStartedHandler = fn }
}

// OnSyncSkipped sets the handler for SyncSkipped events
func OnSyncSkipped(fn func(SyncSkipped)) func(*Subscriber) {
	return func(s *Subscriber) { s.syncSkippedHandler = fn }
}

// OnSyncCompleted sets the handler for SyncCompleted events
func OnSyncCompleted(fn func(SyncCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.syncCompletedHandler = fn }
}

// OnSyncFailed sets the handler for SyncFailed events
func OnSyncFailed(fn func(SyncFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.syncFailedHandler = fn }
}

// OnBlobFetched sets the handler for BlobFetched events
func OnBlobFetched(fn func(BlobFetched)) func(*Subscriber) {
	return func(s *Subscriber) { s.blobFetchedHandler = fn }
}

// OnBlobArchiveFailed sets the handler for BlobArchiveFailed events
func OnBlobArchiveFailed(fn func(BlobArchiveFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.blobArchiveHandler = fn }
}

// OnBlobDecoded sets the handler for BlobDecoded events
func OnBlobDecoded(fn func(BlobDecoded)) func(*Subscriber) {
	return func(s *Subscriber) { s.blobDecodedHandler = fn }
}

// OnBlobDecodeFailed sets the handler for BlobDecodeFailed events
func OnBlobDecodeFailed(fn func(BlobDecodeFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.blobFailedHandler = fn }
}

// OnVoterInBothBlobs sets the handler for VoterInBothBlobs events
func OnVoterInBothBlobs(fn func(VoterInBothBlobs)) func(*Subscriber) {
	return func(s *Subscriber) { s.bothBlobsHandler = fn }
}

// OnRowSaveFailed sets the handler for RowSaveFailed events
func OnRowSaveFailed(fn func(RowSaveFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.rowSaveFailedHandler = fn }
}

// OnPollingStarted sets the handler for PollingStarted events
func OnPollingStarted(fn func(PollingStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollStartedHandler = fn }
}

// OnPollingShutdown sets the handler for PollingShutdown events
func OnPollingShutdown(fn func(PollingShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollShutdownHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	closer := scraper.NewSubscriber(events,
//	  scraper.OnSyncCompleted(func(e scraper.SyncCompleted) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
//
// The subscriber processes events until the events channel closes,
// then the closer function confirms all processing is complete.
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                 make(chan struct{}),
		syncStartedHandler:   func(SyncStarted) {},       // nop by default
		syncSkippedHandler:   func(SyncSkipped) {},       // nop by default
		syncCompletedHandler: func(SyncCompleted) {},     // nop by default
		syncFailedHandler:    func(SyncFailed) {},        // nop by default
		blobFetchedHandler:   func(BlobFetched) {},       // nop by default
		blobArchiveHandler:   func(BlobArchiveFailed) {}, // nop by default
		blobDecodedHandler:   func(BlobDecoded) {},       // nop by default
		blobFailedHandler:    func(BlobDecodeFailed) {},  // nop by default
		bothBlobsHandler:     func(VoterInBothBlobs) {},  // nop by default
		rowSaveFailedHandler: func(RowSaveFailed) {},     // nop by default
		pollStartedHandler:   func(PollingStarted) {},    // nop by default
		pollShutdownHandler:  func(PollingShutdown) {},   // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case SyncStarted:
				s.syncStartedHandler(e)
			case SyncSkipped:
				s.syncSkippedHandler(e)
			case SyncCompleted:
				s.syncCompletedHandler(e)
			case SyncFailed:
				s.syncFailedHandler(e)
			case BlobFetched:
				s.blobFetchedHandler(e)
			case BlobArchiveFailed:
				s.blobArchiveHandler(e)
			case BlobDecoded:
				s.blobDecodedHandler(e)
			case BlobDecodeFailed:
				s.blobFailedHandler(e)
			case VoterInBothBlobs:
				s.bothBlobsHandler(e)
			case RowSaveFailed:
				s.rowSaveFailedHandler(e)
			case PollingStarted:
				s.pollStartedHandler(e)
			case PollingShutdown:
				s.pollShutdownHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
