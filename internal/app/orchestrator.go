package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"github.com/yourusername/vidgrab-go/pkg/logger"
	"go.uber.org/zap"
)

const defaultFailureMessage = "Download failed. You can open the original file instead."

// Orchestrator is the entry point for download requests. It gates on
// authentication, holds at most one request while sign-in is outstanding
// and dispatches to the strategy the detector picks.
type Orchestrator struct {
	sessions   domain.SessionProvider
	navigator  domain.Navigator
	notifier   domain.Notifier
	detector   CapabilityDetector
	strategies map[domain.Strategy]Strategy
	repo       domain.DownloadRepository
	events     *logger.MultiLogger
	logger     *zap.Logger
	failureMsg string

	mu          sync.Mutex
	pending     *domain.DownloadRequest
	running     bool
	stopped     bool
	settled     []func(id string)
	runCtx      context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	inFlight atomic.Int32
	wg       sync.WaitGroup
}

// NewOrchestrator creates a new orchestrator. repo and events may be nil.
func NewOrchestrator(
	sessions domain.SessionProvider,
	navigator domain.Navigator,
	notifier domain.Notifier,
	detector CapabilityDetector,
	strategies map[domain.Strategy]Strategy,
	repo domain.DownloadRepository,
	failureMsg string,
	events *logger.MultiLogger,
	log *zap.Logger,
) *Orchestrator {
	if failureMsg == "" {
		failureMsg = defaultFailureMessage
	}
	return &Orchestrator{
		sessions:   sessions,
		navigator:  navigator,
		notifier:   notifier,
		detector:   detector,
		strategies: strategies,
		repo:       repo,
		events:     events,
		logger:     logger.OrNop(log),
		failureMsg: failureMsg,
		runCtx:     context.Background(),
	}
}

// Start subscribes to auth changes and checks once for a sign-in that
// completed before the subscription attached
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already running")
	}
	o.mu.Unlock()

	events, unsubscribe, err := o.sessions.OnAuthStateChange(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to auth changes: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running = true
	o.stopped = false
	o.runCtx = runCtx
	o.cancel = cancel
	o.unsubscribe = unsubscribe
	o.mu.Unlock()

	o.logEvent("orchestrator_started")

	o.wg.Add(1)
	go o.watchAuth(runCtx, events)

	return nil
}

// Stop unsubscribes and waits for in-flight downloads
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator not running")
	}
	o.running = false
	o.stopped = true
	unsubscribe := o.unsubscribe
	cancel := o.cancel
	o.mu.Unlock()

	unsubscribe()
	cancel()
	o.wg.Wait()

	o.logEvent("orchestrator_stopped")
	return nil
}

// IsRunning returns whether the auth subscription is active
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Loading is true while any strategy is executing
func (o *Orchestrator) Loading() bool {
	return o.inFlight.Load() > 0
}

// Pending returns the request waiting on sign-in, if any
func (o *Orchestrator) Pending() *domain.DownloadRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// HandleDownload runs req to completion, or parks it until sign-in when the
// caller is not authenticated. Failures are reported through the notifier.
func (o *Orchestrator) HandleDownload(ctx context.Context, req *domain.DownloadRequest) {
	if !o.authenticated(ctx) {
		o.deferUntilSignIn(ctx, req)
		return
	}
	o.dispatch(ctx, req)
}

// Submit is HandleDownload without waiting for the download. It reports
// whether the request was parked for sign-in. Before Start, background work
// runs on context.Background; after Stop, Submit returns
// ErrOrchestratorStopped.
func (o *Orchestrator) Submit(ctx context.Context, req *domain.DownloadRequest) (bool, error) {
	if o.isStopped() {
		return false, domain.ErrOrchestratorStopped
	}
	if !o.authenticated(ctx) {
		o.deferUntilSignIn(ctx, req)
		return true, nil
	}
	return false, o.spawn(req)
}

// DispatchPending runs the parked request, if any. A slot already
// consumed by the auth watcher is not an error.
func (o *Orchestrator) DispatchPending(ctx context.Context) bool {
	req := o.takePending()
	if req == nil {
		return false
	}

	o.logEvent("pending_dispatched", zap.String("id", req.ID))
	o.dispatch(ctx, req)
	return true
}

// SubmitPending dispatches the parked request in the background
func (o *Orchestrator) SubmitPending() (*domain.DownloadRequest, error) {
	if o.isStopped() {
		return nil, domain.ErrOrchestratorStopped
	}
	req := o.takePending()
	if req == nil {
		return nil, domain.ErrNoPendingDownload
	}

	o.logEvent("pending_dispatched", zap.String("id", req.ID))
	if err := o.spawn(req); err != nil {
		return nil, err
	}
	return req, nil
}

// OnSettled registers f to run with the request ID once a dispatched
// download completes or fails, or a parked one is superseded
func (o *Orchestrator) OnSettled(f func(id string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settled = append(o.settled, f)
}

// spawn dispatches req on the run context in a goroutine Stop waits for.
// The stopped check and wg.Add share the lock Stop takes before wg.Wait.
func (o *Orchestrator) spawn(req *domain.DownloadRequest) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return domain.ErrOrchestratorStopped
	}
	runCtx := o.runCtx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		o.dispatch(runCtx, req)
	}()
	return nil
}

func (o *Orchestrator) isStopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

func (o *Orchestrator) settle(id string) {
	o.mu.Lock()
	hooks := append(([]func(string))(nil), o.settled...)
	o.mu.Unlock()
	for _, f := range hooks {
		f(id)
	}
}

// watchAuth never runs a download itself, so a long trim cannot stall the
// event channel and cost a later SIGNED_IN
func (o *Orchestrator) watchAuth(ctx context.Context, events <-chan domain.AuthEvent) {
	defer o.wg.Done()

	if o.authenticated(ctx) {
		o.releasePending(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			o.logger.Debug("Auth state changed", zap.String("event", string(event.Type)))
			if event.Type == domain.AuthSignedIn {
				o.releasePending(ctx)
			}
		}
	}
}

// releasePending hands the parked request, if any, to a background dispatch.
// watchAuth holds a wg slot, so the Add cannot race Stop's Wait.
func (o *Orchestrator) releasePending(ctx context.Context) {
	req := o.takePending()
	if req == nil {
		return
	}
	o.logEvent("pending_dispatched", zap.String("id", req.ID))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.dispatch(ctx, req)
	}()
}

func (o *Orchestrator) authenticated(ctx context.Context) bool {
	session, err := o.sessions.GetSession(ctx)
	if err != nil {
		o.logger.Warn("Session lookup failed, treating caller as signed out", zap.Error(err))
		return false
	}
	return session.Authenticated
}

func (o *Orchestrator) deferUntilSignIn(ctx context.Context, req *domain.DownloadRequest) {
	if previous := o.setPending(req); previous != nil {
		o.logEvent("pending_superseded",
			zap.String("id", previous.ID),
			zap.String("by", req.ID))
		o.updateRecord(previous.ID, func(d *domain.Download) {
			d.Status = domain.StatusSuperseded
		})
		o.settle(previous.ID)
	}
	o.createRecord(domain.NewDownloadRecord(req, domain.StatusAwaitingAuth))
	o.logEvent("download_deferred", zap.String("id", req.ID), zap.String("url", req.ResourceURL))

	if req.ReturnPath != "" {
		if err := o.navigator.SaveReturnPath(ctx, req.ReturnPath); err != nil {
			o.logger.Warn("Failed to save return path", zap.Error(err))
		}
	}
	if err := o.navigator.RedirectToAuth(ctx, req.ReturnPath); err != nil {
		o.logger.Error("Failed to redirect to sign-in", zap.Error(err))
	}
}

func (o *Orchestrator) setPending(req *domain.DownloadRequest) *domain.DownloadRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	previous := o.pending
	o.pending = req
	return previous
}

func (o *Orchestrator) takePending() *domain.DownloadRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	req := o.pending
	o.pending = nil
	return req
}

func (o *Orchestrator) dispatch(ctx context.Context, req *domain.DownloadRequest) {
	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	defer o.settle(req.ID)

	decision := o.detector.Decide(ctx, req)
	record := o.startRecord(req, decision)

	o.logEvent("download_started",
		zap.String("id", req.ID),
		zap.String("url", req.ResourceURL),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("container", string(decision.Container)))

	artifact, err := o.run(ctx, req, decision)
	if err != nil {
		o.fail(req, record, err)
		return
	}

	if record != nil {
		record.MarkCompleted(artifact)
		o.saveRecord(record)
	}
	o.logEvent("download_completed",
		zap.String("id", req.ID),
		zap.String("filename", artifact.Filename),
		zap.String("location", artifact.Location))
}

func (o *Orchestrator) run(ctx context.Context, req *domain.DownloadRequest, decision domain.Decision) (artifact *domain.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	strategy, ok := o.strategies[decision.Strategy]
	if !ok {
		return nil, fmt.Errorf("no strategy for %q", decision.Strategy)
	}
	return strategy.Run(ctx, req, decision)
}

func (o *Orchestrator) fail(req *domain.DownloadRequest, record *domain.Download, err error) {
	fields := []zap.Field{
		zap.String("id", req.ID),
		zap.String("url", req.ResourceURL),
		zap.String("kind", errorKind(err)),
		zap.Error(err),
	}
	if o.events != nil {
		o.events.LogAppError("Download failed", fields...)
	} else {
		o.logger.Error("Download failed", fields...)
	}

	if record != nil {
		record.MarkFailed(err)
		o.saveRecord(record)
	}

	o.notifier.Notify(domain.Notification{
		Title:   "Download failed",
		Message: o.failureMsg,
		Action:  &domain.NotificationAction{Label: "Open original", URL: req.ResourceURL},
	})
}

// errorKind names the failure class for logs; users only see one message
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrMediaLoad):
		return "media_load"
	case errors.Is(err, domain.ErrCaptureUnsupported):
		return "capture_unsupported"
	case errors.Is(err, domain.ErrSink):
		return "sink"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

func (o *Orchestrator) startRecord(req *domain.DownloadRequest, decision domain.Decision) *domain.Download {
	if o.repo == nil {
		return nil
	}

	record, err := o.repo.FindByID(req.ID)
	if err != nil || record == nil {
		record = domain.NewDownloadRecord(req, domain.StatusProcessing)
		record.MarkProcessing(decision)
		o.createRecord(record)
		return record
	}

	record.MarkProcessing(decision)
	o.saveRecord(record)
	return record
}

func (o *Orchestrator) createRecord(record *domain.Download) {
	if o.repo == nil {
		return
	}
	if err := o.repo.Create(record); err != nil {
		o.logger.Error("Failed to create download record", zap.String("id", record.ID), zap.Error(err))
	}
}

func (o *Orchestrator) saveRecord(record *domain.Download) {
	if err := o.repo.Update(record); err != nil {
		o.logger.Error("Failed to update download record", zap.String("id", record.ID), zap.Error(err))
	}
}

func (o *Orchestrator) updateRecord(id string, mutate func(d *domain.Download)) {
	if o.repo == nil {
		return
	}
	record, err := o.repo.FindByID(id)
	if err != nil || record == nil || record.IsTerminal() {
		return
	}
	mutate(record)
	o.saveRecord(record)
}

func (o *Orchestrator) logEvent(event string, fields ...zap.Field) {
	if o.events != nil {
		o.events.LogDownloadEvent(event, fields...)
		return
	}
	o.logger.Info(event, fields...)
}
