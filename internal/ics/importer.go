package ics

import (
	"context"
	"errors"
	"fmt"

	appLog "eventcal/internal/log"
	"eventcal/internal/metric"
	"eventcal/internal/model"
)

// Sink is where imported events are written. store.Store implements it.
type Sink interface {
	Upsert(ctx context.Context, ev model.Event) (model.Event, error)
	DeleteStale(ctx context.Context, prefix string, keep []string) (int64, error)
}

// Importer copies subscription feeds into the event store.
type Importer struct {
	fetcher *Fetcher
	sink    Sink
	sources []Source
	metrics *metric.Metrics
}

// NewImporter builds an Importer. m may be nil.
func NewImporter(fetcher *Fetcher, sink Sink, sources []Source, m *metric.Metrics) *Importer {
	return &Importer{fetcher: fetcher, sink: sink, sources: sources, metrics: m}
}

// RefreshSummary reports what one Refresh did.
type RefreshSummary struct {
	Sources  int
	Imported int
	Removed  int64
}

// Refresh fetches every source, upserts its events and removes events the
// feed no longer contains. A failing source does not stop the others; all
// failures are joined into the returned error.
func (im *Importer) Refresh(ctx context.Context) (RefreshSummary, error) {
	var summary RefreshSummary
	if len(im.sources) == 0 {
		return summary, nil
	}

	results, errs := im.fetcher.FetchAll(ctx, im.sources)
	for _, err := range errs {
		im.metrics.ImportRun(sourceOf(err), err, 0)
	}

	for _, res := range results {
		n, removed, err := im.importOne(ctx, res)
		im.metrics.ImportRun(res.Source.ID, err, n)
		if err != nil {
			appLog.Error("ics import failed", err, "source", res.Source.ID)
			errs = append(errs, err)
			continue
		}
		summary.Sources++
		summary.Imported += n
		summary.Removed += removed
	}

	appLog.Info("ics refresh done",
		"sources", summary.Sources,
		"imported", summary.Imported,
		"removed", summary.Removed,
		"failed", len(errs),
	)
	return summary, errors.Join(errs...)
}

func (im *Importer) importOne(ctx context.Context, res FetchResult) (int, int64, error) {
	src := res.Source
	events, err := ParseICS(src, res.Body)
	if err != nil {
		return 0, 0, err
	}

	keep := make([]string, 0, len(events))
	for _, ev := range events {
		if _, err := im.sink.Upsert(ctx, ev); err != nil {
			return 0, 0, fmt.Errorf("import %s: %w", src.ID, err)
		}
		keep = append(keep, ev.ID)
	}

	removed, err := im.sink.DeleteStale(ctx, IDPrefix(src), keep)
	if err != nil {
		return 0, 0, fmt.Errorf("import %s: %w", src.ID, err)
	}
	return len(events), removed, nil
}

// fetchError carries the source ID through FetchAll's error slice.
type fetchError struct {
	source string
	err    error
}

func (e *fetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.source, e.err) }
func (e *fetchError) Unwrap() error { return e.err }

func sourceOf(err error) string {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.source
	}
	return "unknown"
}
