// Package importer runs menu imports: it fetches a JSON:API menu document,
// reconciles it into storage and records the outcome.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/menu-importer/internal/jsonapi"
	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/otel"
	"github.com/stacklok/menu-importer/internal/reconcile"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage"
	"github.com/stacklok/menu-importer/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=importer.go Service

const (
	// SuccessMessage is reported to the caller when an import completes
	SuccessMessage = "Menu items have been imported."

	// FailureMessage is reported to the caller when an import fails
	FailureMessage = "Menu import failed."
)

// ErrImportFailed is the single error callers see for a failed import. The
// underlying cause is joined to it and logged.
var ErrImportFailed = errors.New("menu import failed")

// Result describes a completed import
type Result struct {
	reconcile.Result

	// Collection is the collection the items were imported into
	Collection string `json:"collection"`

	// Hash is the SHA256 hash of the fetched document
	Hash string `json:"hash"`

	// RunID identifies this run in logs and traces
	RunID string `json:"runId"`
}

// Service imports menus from JSON:API endpoints
type Service interface {
	// ImportMenus imports the items published at endpoint into collection.
	// An empty collection is derived from the last path segment of endpoint.
	// Any failure is returned wrapped in ErrImportFailed.
	ImportMenus(ctx context.Context, endpoint, collection string) (*Result, error)
}

// defaultImporter is the default implementation of Service
type defaultImporter struct {
	fetcher           jsonapi.Fetcher
	reconciler        *reconcile.Reconciler
	statusPersistence status.StatusPersistence
	metrics           *telemetry.ImportMetrics
	tracer            trace.Tracer
	logger            *slog.Logger
	now               func() time.Time

	// mu serializes imports issued by the API and the coordinator
	mu sync.Mutex
}

// Option configures the importer
type Option func(*defaultImporter)

// WithStatusPersistence records the phase and outcome of each run
func WithStatusPersistence(p status.StatusPersistence) Option {
	return func(i *defaultImporter) {
		i.statusPersistence = p
	}
}

// WithMetrics records import duration and item counts
func WithMetrics(metrics *telemetry.ImportMetrics) Option {
	return func(i *defaultImporter) {
		i.metrics = metrics
	}
}

// WithTracer records a span per import and per reconcile pass
func WithTracer(tracer trace.Tracer) Option {
	return func(i *defaultImporter) {
		i.tracer = tracer
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *defaultImporter) {
		i.logger = logger
	}
}

// New creates an importer that fetches with fetcher and writes to repo
func New(fetcher jsonapi.Fetcher, repo storage.Repository, opts ...Option) Service {
	i := &defaultImporter{
		fetcher: fetcher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.reconciler = reconcile.NewReconciler(repo, i.logger, reconcile.WithTracer(i.tracer))
	return i
}

// ImportMenus implements Service
func (i *defaultImporter) ImportMenus(ctx context.Context, endpoint, collection string) (result *Result, err error) {
	runID := uuid.NewString()
	logger := i.logger.With("run_id", runID, "endpoint", endpoint)

	if collection == "" {
		collection, err = menu.CollectionNameFromEndpoint(endpoint)
		if err != nil {
			logger.Error("Menu import failed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
		}
	}
	logger = logger.With("collection", collection)

	i.mu.Lock()
	defer i.mu.Unlock()

	ctx, span := otel.StartSpan(ctx, i.tracer, "importer.ImportMenus",
		trace.WithAttributes(
			otel.AttrRunID.String(runID),
			otel.AttrEndpoint.String(endpoint),
			otel.AttrCollection.String(collection),
		))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	start := i.now()
	importStatus := i.beginStatus(ctx, logger, collection, endpoint, start)

	logger.Info("Starting menu import", "attempt", importStatus.AttemptCount)

	result, err = i.run(ctx, endpoint, collection)
	result.RunID = runID
	duration := i.now().Sub(start)

	if err != nil {
		logger.Error("Menu import failed", "error", err, "duration", duration)
		i.metrics.RecordImportDuration(ctx, collection, duration, false)

		importStatus.Phase = status.ImportPhaseFailed
		importStatus.Message = FailureMessage
		i.saveStatus(ctx, logger, collection, importStatus)
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	i.metrics.RecordImportDuration(ctx, collection, duration, true)
	i.metrics.RecordItems(ctx, collection, telemetry.ItemCounts{
		Created: result.Created,
		Updated: result.Updated,
		Deleted: result.Deleted,
		Skipped: result.Skipped,
		Linked:  result.Linked,
	})
	span.SetAttributes(
		otel.AttrCreated.Int(result.Created),
		otel.AttrUpdated.Int(result.Updated),
		otel.AttrDeleted.Int(result.Deleted),
		otel.AttrSkipped.Int(result.Skipped),
		otel.AttrLinked.Int(result.Linked),
	)

	finished := i.now()
	importStatus.Phase = status.ImportPhaseComplete
	importStatus.Message = SuccessMessage
	importStatus.LastImportTime = &finished
	importStatus.LastPayloadHash = result.Hash
	importStatus.AttemptCount = 0
	importStatus.Created = result.Created
	importStatus.Updated = result.Updated
	importStatus.Deleted = result.Deleted
	importStatus.Skipped = result.Skipped
	importStatus.Linked = result.Linked
	i.saveStatus(ctx, logger, collection, importStatus)

	hashPreview := result.Hash
	if len(hashPreview) > 8 {
		hashPreview = hashPreview[:8]
	}
	logger.Info(SuccessMessage,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"skipped", result.Skipped,
		"linked", result.Linked,
		"hash", hashPreview,
		"duration", duration,
	)
	return result, nil
}

// run fetches and reconciles. The returned Result is never nil.
func (i *defaultImporter) run(ctx context.Context, endpoint, collection string) (*Result, error) {
	result := &Result{Collection: collection}

	fetched, err := i.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return result, err
	}
	result.Hash = fetched.Hash

	counts, err := i.reconciler.Reconcile(ctx, fetched.Records, collection)
	if counts != nil {
		result.Result = *counts
	}
	return result, err
}

// beginStatus marks the collection as importing. The previous status is kept
// so the attempt count and last successful import survive a failed run.
func (i *defaultImporter) beginStatus(
	ctx context.Context, logger *slog.Logger, collection, endpoint string, now time.Time,
) *status.ImportStatus {
	importStatus := &status.ImportStatus{}
	if i.statusPersistence != nil {
		previous, err := i.statusPersistence.LoadStatus(ctx, collection)
		if err != nil {
			logger.Warn("Failed to load import status", "error", err)
		} else if previous != nil {
			importStatus = previous
		}
	}

	importStatus.Phase = status.ImportPhaseImporting
	importStatus.Message = "Import in progress"
	importStatus.Endpoint = endpoint
	importStatus.LastAttempt = &now
	importStatus.AttemptCount++

	i.saveStatus(ctx, logger, collection, importStatus)
	return importStatus
}

func (i *defaultImporter) saveStatus(
	ctx context.Context, logger *slog.Logger, collection string, importStatus *status.ImportStatus,
) {
	if i.statusPersistence == nil {
		return
	}
	// Status is recorded even when the import context was cancelled
	if err := i.statusPersistence.SaveStatus(context.WithoutCancel(ctx), collection, importStatus); err != nil {
		logger.Warn("Failed to persist import status", "phase", importStatus.Phase, "error", err)
	}
}
