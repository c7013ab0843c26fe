package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/homealarm/internal/assetstore"
	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/store"
)

// houseRepository is the subset of store.HouseStore the services require.
type houseRepository interface {
	Create(ctx context.Context, h *domain.House) error
	FindByID(ctx context.Context, id int64) (*domain.House, error)
	Find(ctx context.Context) ([]*domain.House, error)
	SaveRefs(ctx context.Context, h *domain.House) error
	SaveProfile(ctx context.Context, h *domain.House) error
	Remove(ctx context.Context, id int64) error
}

// hostRepository is the subset of store.HostStore the services require.
type hostRepository interface {
	Create(ctx context.Context, h *domain.Host) error
	FindByID(ctx context.Context, id int64) (*domain.Host, error)
	FindByHouse(ctx context.Context, houseID int64) ([]*domain.Host, error)
	Remove(ctx context.Context, id int64) error
}

// alarmRepository is the subset of store.AlarmStore the services require.
type alarmRepository interface {
	Create(ctx context.Context, a *domain.Alarm) error
	FindByID(ctx context.Context, id int64) (*domain.Alarm, error)
	Find(ctx context.Context, filter store.AlarmFilter) ([]*domain.Alarm, error)
	Save(ctx context.Context, a *domain.Alarm) error
	DetachHost(ctx context.Context, alarmID, hostID int64) error
	Remove(ctx context.Context, id int64) error
}

// assetStore is the subset of assetstore.Adapter the services require.
type assetStore interface {
	Upload(ctx context.Context, f assetstore.File, opts assetstore.Options) (*assetstore.Result, error)
	Delete(ctx context.Context, id string) error
}

type reporter interface {
	Report(ctx context.Context, ev reconcile.Event)
}

// Repositories groups the record stores shared by every service.
type Repositories struct {
	Houses houseRepository
	Hosts  hostRepository
	Alarms alarmRepository
}

// NewRepositories wraps the concrete stores.
func NewRepositories(houses *store.HouseStore, hosts *store.HostStore, alarms *store.AlarmStore) Repositories {
	return Repositories{Houses: houses, Hosts: hosts, Alarms: alarms}
}

// backRefAttempts bounds the load-modify-save of a House back-reference.
const backRefAttempts = 2

// updateHouse reloads the house and applies mutate before each save attempt,
// so a retry never writes back a stale copy.
func updateHouse(ctx context.Context, houses houseRepository, houseID int64, mutate func(*domain.House)) error {
	var lastErr error
	for attempt := 0; attempt < backRefAttempts; attempt++ {
		house, err := houses.FindByID(ctx, houseID)
		if err != nil {
			lastErr = fmt.Errorf("failed to load house: %w", err)
			continue
		}
		if house == nil {
			return &domain.NotFoundError{Entity: "house", ID: houseID}
		}
		mutate(house)
		if err := houses.SaveRefs(ctx, house); err != nil {
			lastErr = fmt.Errorf("failed to save house: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}

// discardAsset deletes a blob that no committed record references. A failure
// leaves an orphan, which is reported rather than returned.
func discardAsset(ctx context.Context, assets assetStore, reports reporter, logger *slog.Logger, entity string, entityID int64, assetID string) {
	if assetID == "" {
		return
	}
	if err := assets.Delete(ctx, assetID); err != nil {
		logger.Warn("failed to discard asset", "entity", entity, "asset_id", assetID, "error", err)
		reports.Report(ctx, reconcile.Event{
			Kind:     reconcile.OrphanedAsset,
			Entity:   entity,
			EntityID: entityID,
			AssetID:  assetID,
			Err:      err,
		})
	}
}

func asUploadError(err error, what string) error {
	var upErr *domain.AssetUploadError
	if errors.As(err, &upErr) {
		return err
	}
	return &domain.AssetUploadError{Message: what, Err: err}
}

func asDeleteError(err error, assetID string) error {
	var delErr *domain.AssetDeleteError
	if errors.As(err, &delErr) {
		return err
	}
	return &domain.AssetDeleteError{AssetID: assetID, Message: "delete", Err: err}
}
