// Package reconcile publishes state that needs an operator's attention:
// orphaned blobs, partial commits and incomplete cascades. Each event is
// written as a structured log record and counted in Prometheus.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Kind string

const (
	// OrphanedAsset is a blob no record references any more.
	OrphanedAsset Kind = "orphaned_asset"
	// PartialCommit is a record persisted without its House back-reference.
	PartialCommit Kind = "partial_commit"
	// CascadeFailure is a dependent a house deletion could not remove.
	CascadeFailure Kind = "cascade_failure"
	// StaleReference is a live record whose asset is gone or cannot be removed.
	StaleReference Kind = "stale_reference"
)

type Event struct {
	Kind     Kind
	Entity   string
	EntityID int64
	HouseID  int64
	AssetID  string
	Err      error
}

type Reporter struct {
	logger *slog.Logger
	events *prometheus.CounterVec
}

// NewReporter registers its counter with reg.
func NewReporter(logger *slog.Logger, reg prometheus.Registerer) (*Reporter, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homealarm",
		Name:      "reconciliation_events_total",
		Help:      "State left inconsistent between the database and the asset store, by kind and entity.",
	}, []string{"kind", "entity"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &Reporter{logger: logger, events: events}, nil
}

func (r *Reporter) Report(ctx context.Context, ev Event) {
	r.events.WithLabelValues(string(ev.Kind), ev.Entity).Inc()

	attrs := []slog.Attr{
		slog.String("kind", string(ev.Kind)),
		slog.String("entity", ev.Entity),
	}
	if ev.EntityID != 0 {
		attrs = append(attrs, slog.Int64("entity_id", ev.EntityID))
	}
	if ev.HouseID != 0 {
		attrs = append(attrs, slog.Int64("house_id", ev.HouseID))
	}
	if ev.AssetID != "" {
		attrs = append(attrs, slog.String("asset_id", ev.AssetID))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}
	r.logger.LogAttrs(ctx, slog.LevelError, "reconciliation required", attrs...)
}
