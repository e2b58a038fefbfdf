// Package reconcile applies a fetched set of menu records to a stored collection.
//
// A run makes three passes in a fixed order:
//
//  1. delete: stored items whose ID is absent from the records are removed
//  2. upsert: each record is loaded or created, its attributes applied, and the
//     item saved when it has a link destination
//  3. link: parent relationships are set for records whose parent was resolved
//     in this run, and cleared otherwise
//
// Per-item failures are logged and skipped. Nothing is rolled back.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/otel"
	"github.com/stacklok/menu-importer/internal/storage"
)

// Result counts what a reconcile run did.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Linked  int `json:"linked"`
}

// Reconciler reconciles records against a storage.Repository.
type Reconciler struct {
	repo   storage.Repository
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTracer records a span per pass.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

// NewReconciler returns a Reconciler writing to repo. A nil logger discards output.
func NewReconciler(repo storage.Repository, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Reconciler{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolved is the in-memory state of one record after the upsert pass.
// Only items saved in this run take part in the link pass.
type resolved struct {
	item  *menu.Item
	saved bool
}

// Reconcile runs the delete, upsert and link passes for collection. The only
// errors returned are a failure to list the collection (a *menu.PersistenceError)
// and context cancellation between passes.
func (r *Reconciler) Reconcile(ctx context.Context, records []menu.Record, collection string) (*Result, error) {
	logger := r.logger.With("collection", collection)
	result := &Result{}

	if err := r.deletePass(ctx, logger, records, collection, result); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	items := r.upsertPass(ctx, logger, records, collection, result)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	r.linkPass(ctx, logger, records, items, result)

	logger.Info("Menu reconcile complete",
		"records", len(records),
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"skipped", result.Skipped,
		"linked", result.Linked,
	)
	return result, nil
}

func (r *Reconciler) deletePass(
	ctx context.Context, logger *slog.Logger, records []menu.Record, collection string, result *Result,
) (err error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "reconcile.delete")
	defer func() {
		otel.RecordError(span, err)
		span.SetAttributes(otel.AttrDeleted.Int(result.Deleted))
		span.End()
	}()

	existing, err := r.repo.LoadAllByCollection(ctx, collection)
	if err != nil {
		return &menu.PersistenceError{Op: "load collection " + collection, Err: err}
	}

	payloadIDs := menu.RecordIDs(records)
	for _, item := range existing {
		if _, ok := payloadIDs[item.ID]; ok {
			continue
		}
		if err := r.repo.DeleteItem(ctx, item); err != nil {
			logger.Error("Failed to delete menu item",
				"id", item.ID,
				"error", &menu.PersistenceError{Op: "delete", ID: item.ID, Err: err})
			continue
		}
		logger.Debug("Deleted menu item", "id", item.ID)
		result.Deleted++
	}
	return nil
}

func (r *Reconciler) upsertPass(
	ctx context.Context, logger *slog.Logger, records []menu.Record, collection string, result *Result,
) map[string]*resolved {
	ctx, span := otel.StartSpan(ctx, r.tracer, "reconcile.upsert",
		trace.WithAttributes(otel.AttrRecordCount.Int(len(records))))
	defer func() {
		span.SetAttributes(
			otel.AttrCreated.Int(result.Created),
			otel.AttrUpdated.Int(result.Updated),
			otel.AttrSkipped.Int(result.Skipped),
		)
		span.End()
	}()

	items := make(map[string]*resolved, len(records))
	for i := range records {
		rec := &records[i]

		item, existed, err := r.loadOrCreate(ctx, collection, rec.ID)
		if err != nil {
			logger.Error("Failed to load menu item",
				"id", rec.ID,
				"error", &menu.PersistenceError{Op: "load", ID: rec.ID, Err: err})
			result.Skipped++
			continue
		}

		item.Title = rec.Title
		r.applyAttributes(logger, item, rec.Attributes)

		if rec.LinkURI == "" {
			logger.Warn("Skipping menu item without a link",
				"id", rec.ID,
				"error", &menu.MissingLinkError{ID: rec.ID})
			result.Skipped++
			items[rec.ID] = &resolved{item: item}
			continue
		}

		item.LinkURI = rec.LinkURI
		if err := r.repo.Save(ctx, item); err != nil {
			logger.Error("Failed to save menu item",
				"id", rec.ID,
				"error", &menu.PersistenceError{Op: "save", ID: rec.ID, Err: err})
			result.Skipped++
			items[rec.ID] = &resolved{item: item}
			continue
		}

		if existed {
			result.Updated++
		} else {
			result.Created++
		}
		items[rec.ID] = &resolved{item: item, saved: true}
	}
	return items
}

func (r *Reconciler) loadOrCreate(ctx context.Context, collection, id string) (*menu.Item, bool, error) {
	item, err := r.repo.LoadByCollectionAndID(ctx, collection, id)
	if err == nil {
		return item, true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return r.repo.CreateItem(collection, id), false, nil
	}
	return nil, false, err
}

// applyAttributes routes attributes through the item's typed setters in name
// order. A value that cannot be converted is logged and left unset.
func (*Reconciler) applyAttributes(logger *slog.Logger, item *menu.Item, attributes map[string]any) {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := item.SetAttribute(name, attributes[name]); err != nil {
			logger.Warn("Ignoring menu item attribute", "id", item.ID, "attribute", name, "error", err)
		}
	}
}

func (r *Reconciler) linkPass(
	ctx context.Context, logger *slog.Logger, records []menu.Record, items map[string]*resolved, result *Result,
) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "reconcile.link")
	defer func() {
		span.SetAttributes(otel.AttrLinked.Int(result.Linked))
		span.End()
	}()

	// Last duplicate wins for the parent as well
	parentOf := make(map[string]string, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		if _, seen := parentOf[rec.ID]; !seen {
			order = append(order, rec.ID)
		}
		parentOf[rec.ID] = rec.ParentID
	}

	for _, id := range order {
		child, ok := items[id]
		if !ok || !child.saved {
			continue
		}

		var want menu.LinkRef
		if parent, ok := items[parentOf[id]]; ok && parent.saved && parentOf[id] != id {
			want = parent.item.Ref()
		} else if parentOf[id] != "" {
			logger.Debug("Parent not resolved in this import, leaving item at the top level",
				"id", id, "parent", parentOf[id])
		}

		if child.item.ParentRef == want {
			if !want.IsZero() {
				result.Linked++
			}
			continue
		}

		if err := r.repo.SetParentLink(ctx, child.item, want); err != nil {
			logger.Error("Failed to set parent link",
				"id", id,
				"parent", string(want),
				"error", &menu.PersistenceError{Op: "link", ID: id, Err: err})
			continue
		}
		if !want.IsZero() {
			result.Linked++
		}
	}
}

// String implements fmt.Stringer for log output.
func (r *Result) String() string {
	return fmt.Sprintf("created=%d updated=%d deleted=%d skipped=%d linked=%d",
		r.Created, r.Updated, r.Deleted, r.Skipped, r.Linked)
}
