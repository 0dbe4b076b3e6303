// Package orchestrator runs entry analysis in the background: one goroutine
// per queued entry, deduplicated per id, bounded by a semaphore and covered by
// the keep-alive coordinator while work is in flight.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/analysis"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/keepalive"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

var ErrShuttingDown = errors.New("orchestrator is shutting down")

const defaultMaxConcurrent = 4

type Options struct {
	MaxConcurrent    int
	SubscriberBuffer int
	Logger           *slog.Logger
	Metrics          *Metrics
	Now              func() time.Time
}

type Orchestrator struct {
	entries   entry.EntryRepository
	analyses  analysis.AnalysisRepository
	blobs     storage.BlobStore
	llm       llm.Resolver
	keepAlive *keepalive.Coordinator

	broadcaster *StatusBroadcaster
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time

	flights singleflight.Group
	sem     *semaphore.Weighted

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	active map[uuid.UUID]struct{}
	wg     sync.WaitGroup
}

func New(
	entries entry.EntryRepository,
	analyses analysis.AnalysisRepository,
	blobs storage.BlobStore,
	resolver llm.Resolver,
	keepAlive *keepalive.Coordinator,
	opts Options,
) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if keepAlive == nil {
		keepAlive = keepalive.NewCoordinator(keepalive.NoopGuard{}, opts.Logger)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	metrics := opts.Metrics
	return &Orchestrator{
		entries:     entries,
		analyses:    analyses,
		blobs:       blobs,
		llm:         resolver,
		keepAlive:   keepAlive,
		broadcaster: NewStatusBroadcaster(opts.SubscriberBuffer, opts.Logger, metrics.StatusEventsDropped.Inc),
		metrics:     metrics,
		logger:      opts.Logger,
		now:         opts.Now,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		active:      make(map[uuid.UUID]struct{}),
		baseCtx:     baseCtx,
		cancel:      cancel,
	}
}

// QueueEntry schedules a Pending entry for analysis and returns immediately.
// Entries in any other status are left alone, so queueing twice is harmless.
func (o *Orchestrator) QueueEntry(ctx context.Context, id uuid.UUID) error {
	current, err := o.load(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != entities.StatusPending {
		o.logger.DebugContext(ctx, "entry not pending, nothing to queue", "entry_id", id, "status", current.Status)
		return nil
	}
	return o.schedule(id, false)
}

// RetryEntry re-runs analysis for a Failed or Skipped entry.
func (o *Orchestrator) RetryEntry(ctx context.Context, id uuid.UUID) error {
	current, err := o.load(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != entities.StatusPending && !current.Status.IsRetryable() {
		return fmt.Errorf("%w: entry is %s", domain.ErrEntryNotRetryable, current.Status)
	}
	return o.schedule(id, true)
}

// Subscribe delivers every persisted status change until cancel is called.
func (o *Orchestrator) Subscribe(buffer int) (<-chan StatusChange, func()) {
	return o.broadcaster.Subscribe(buffer)
}

// Wait blocks until all scheduled work has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown stops accepting work, cancels in-flight provider calls and waits
// for every goroutine to persist its outcome.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) load(ctx context.Context, id uuid.UUID) (*entities.TrackedEntry, error) {
	current, err := o.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return current, nil
}

// schedule starts a worker for id unless one is already scheduled; that
// worker re-reads the status and covers this request too.
func (o *Orchestrator) schedule(id uuid.UUID, retry bool) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrShuttingDown
	}
	if _, scheduled := o.active[id]; scheduled {
		o.mu.Unlock()
		o.logger.Debug("entry already scheduled", "entry_id", id, "retry", retry)
		return nil
	}
	o.wg.Add(1)
	o.active[id] = struct{}{}
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer o.untrack(id)
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("entry worker panicked", "entry_id", id, "panic", r)
			}
		}()

		_, err, shared := o.flights.Do(id.String(), func() (any, error) {
			return nil, o.process(o.baseCtx, id, retry)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("entry analysis ended with error", "entry_id", id, "shared", shared, "error", err)
		}
	}()
	return nil
}

func (o *Orchestrator) untrack(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}

// IsInFlight reports whether this process has work scheduled for id.
func (o *Orchestrator) IsInFlight(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, scheduled := o.active[id]
	return scheduled
}

// process runs one entry through the pipeline. The status is re-read here,
// inside the flight, so a late duplicate finds the entry already handled.
func (o *Orchestrator) process(ctx context.Context, id uuid.UUID, retry bool) (err error) {
	taskName := "analyze-entry-" + id.String()
	o.keepAlive.Acquire(ctx, taskName)
	defer o.keepAlive.Release(context.WithoutCancel(ctx), taskName)

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.sem.Release(1)

	o.metrics.InFlight.Inc()
	defer o.metrics.InFlight.Dec()

	current, err := o.load(ctx, id)
	if err != nil {
		return err
	}
	eligible := current.Status == entities.StatusPending || (retry && current.Status.IsRetryable())
	if !eligible {
		o.logger.DebugContext(ctx, "entry no longer eligible, skipping", "entry_id", id, "status", current.Status)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while analysing entry", "entry_id", id, "panic", r)
			o.finish(ctx, current, entities.StatusFailed, fmt.Sprintf("internal error: %v", r))
			err = fmt.Errorf("panic while analysing entry %s: %v", id, r)
		}
	}()

	if err := o.persistStatus(ctx, current, entities.StatusProcessing); err != nil {
		return fmt.Errorf("mark entry processing: %w", err)
	}

	client, err := o.llm.Resolve(ctx)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			o.logger.InfoContext(ctx, "no llm provider configured, skipping analysis", "entry_id", id)
			o.finish(ctx, current, entities.StatusSkipped, "llm provider not configured")
			return nil
		}
		o.finish(ctx, current, entities.StatusFailed, err.Error())
		return err
	}

	resp, err := o.callProvider(ctx, client, current)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.WarnContext(ctx, "analysis cancelled, returning entry to pending", "entry_id", id)
			o.finish(ctx, current, entities.StatusPending, "cancelled")
			return ctx.Err()
		}
		o.finish(ctx, current, entities.StatusFailed, err.Error())
		return err
	}

	result, report := analysis.ParseAndValidate(resp.Content)
	if !report.IsValid() {
		o.logger.WarnContext(ctx, "analysis response rejected", "entry_id", id, "errors", report.Errors)
		o.finish(ctx, current, entities.StatusFailed, report.Err().Error())
		return report.Err()
	}
	for _, warning := range report.Warnings {
		o.logger.WarnContext(ctx, "analysis warning", "entry_id", id, "warning", warning)
	}

	insights, err := result.InsightsJSON()
	if err != nil {
		o.finish(ctx, current, entities.StatusFailed, err.Error())
		return err
	}
	providerID := resp.Diagnostics.Provider
	if providerID == "" {
		providerID = client.Provider()
	}
	model := resp.Diagnostics.Model
	if model == "" {
		model = client.Model()
	}

	// The provider already answered; keep the result even if shutdown began.
	persistCtx := context.WithoutCancel(ctx)
	record := &entities.EntryAnalysis{
		ID:            uuid.New(),
		EntryID:       current.ID,
		ExternalID:    current.ExternalID,
		ProviderID:    string(providerID),
		Model:         model,
		CapturedAt:    o.now().UTC(),
		SchemaVersion: result.Analysis.SchemaVersion,
		InsightsJSON:  insights,
	}
	if err := o.analyses.Add(persistCtx, record); err != nil {
		o.finish(ctx, current, entities.StatusFailed, fmt.Sprintf("persist analysis: %v", err))
		return fmt.Errorf("persist analysis: %w", err)
	}

	current.EntryType = result.EntryType
	o.finish(ctx, current, entities.StatusCompleted, "")
	o.logger.InfoContext(ctx, "entry analysed", "entry_id", id, "entry_type", result.EntryType,
		"provider", providerID, "model", model, "warnings", len(report.Warnings))
	return nil
}

func (o *Orchestrator) callProvider(ctx context.Context, client llm.Client, current *entities.TrackedEntry) (llm.Response, error) {
	payload, err := domain.DecodeEntryPayload(current.PayloadSchemaVersion, current.Payload)
	if err != nil {
		return llm.Response{}, err
	}
	prompt := analysis.BuildEntryPrompt(current, payload)
	hint := analysis.UnifiedSchemaHint()

	var (
		resp      llm.Response
		operation string
	)
	started := time.Now()
	if current.HasImage() {
		image, err := storage.ReadAll(ctx, o.blobs, *current.BlobPath)
		if err != nil {
			return llm.Response{}, fmt.Errorf("read entry image: %w", err)
		}
		operation = "analyze_image"
		resp, err = client.AnalyzeImage(ctx, image, prompt, hint)
		if err != nil {
			return llm.Response{}, err
		}
	} else {
		if !current.HasPayload() {
			return llm.Response{}, domain.ErrInvalidEntry
		}
		operation = "completion"
		resp, err = client.GenerateCompletion(ctx, prompt, hint)
		if err != nil {
			return llm.Response{}, err
		}
	}

	provider := string(client.Provider())
	o.metrics.ProviderLatency.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
	if diag := resp.Diagnostics; diag.PromptTokens != nil {
		o.metrics.TokensTotal.WithLabelValues(provider, "prompt").Add(float64(*diag.PromptTokens))
	}
	if diag := resp.Diagnostics; diag.CompletionTokens != nil {
		o.metrics.TokensTotal.WithLabelValues(provider, "completion").Add(float64(*diag.CompletionTokens))
	}
	return resp, nil
}

func (o *Orchestrator) persistStatus(ctx context.Context, current *entities.TrackedEntry, next entities.ProcessingStatus) error {
	if !current.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, current.Status, next)
	}
	previous := current.Status
	current.Status = next
	if err := o.entries.UpdateStatus(ctx, current); err != nil {
		current.Status = previous
		return err
	}
	o.publish(current, "")
	return nil
}

// finish persists a terminal (or reset) status even after cancellation and
// publishes it. A failed write leaves the entry Processing for recovery.
func (o *Orchestrator) finish(ctx context.Context, current *entities.TrackedEntry, next entities.ProcessingStatus, reason string) {
	persistCtx := context.WithoutCancel(ctx)
	if !current.Status.CanTransitionTo(next) {
		o.logger.ErrorContext(persistCtx, "refusing status transition", "entry_id", current.ID,
			"from", current.Status, "to", next)
		return
	}
	previous := current.Status
	current.Status = next
	if err := o.entries.UpdateStatus(persistCtx, current); err != nil {
		current.Status = previous
		o.logger.ErrorContext(persistCtx, "failed to persist entry status", "entry_id", current.ID,
			"status", next, "error", err)
		return
	}
	if next == entities.StatusFailed {
		o.logger.WarnContext(persistCtx, "entry analysis failed", "entry_id", current.ID, "reason", reason)
	}
	o.metrics.EntriesProcessed.WithLabelValues(string(next)).Inc()
	o.publish(current, reason)
}

func (o *Orchestrator) publish(current *entities.TrackedEntry, reason string) {
	o.broadcaster.Publish(StatusChange{
		EntryID:   current.ID,
		Status:    current.Status,
		EntryType: current.EntryType,
		Reason:    reason,
		At:        o.now().UTC(),
	})
}
