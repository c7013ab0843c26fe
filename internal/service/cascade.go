package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/store"
)

// Cascade deletes a house together with its hosts, alarms and blobs.
type Cascade struct {
	repos   Repositories
	assets  assetStore
	reports reporter
	logger  *slog.Logger
}

func NewCascade(repos Repositories, assets assetStore, reports reporter, logger *slog.Logger) *Cascade {
	return &Cascade{repos: repos, assets: assets, reports: reports, logger: logger}
}

// CascadeResult summarises a house deletion.
type CascadeResult struct {
	HouseID        int64
	DeletedHosts   []int64
	DeletedAlarms  []int64
	OrphanedAssets []string
}

// DeleteHouse processes every dependent even when some fail. Dependents are
// found both through the house's id lists and through their own house_id,
// so a stale back-reference in either direction is still cleaned up.
//
// Failures are collected into a *domain.CascadeError. The house record is
// removed once all dependents have been attempted; its image goes last.
func (c *Cascade) DeleteHouse(ctx context.Context, houseID int64) (*CascadeResult, error) {
	house, err := c.repos.Houses.FindByID(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if house == nil {
		return nil, &domain.NotFoundError{Entity: "house", ID: houseID}
	}

	hostIDs, err := c.hostIDs(ctx, house)
	if err != nil {
		return nil, err
	}
	alarmIDs, err := c.alarmIDs(ctx, house)
	if err != nil {
		return nil, err
	}

	result := &CascadeResult{HouseID: houseID}
	var (
		merr     *multierror.Error
		failures []domain.DependentFailure
	)
	fail := func(f domain.DependentFailure, kind reconcile.Kind) {
		failures = append(failures, f)
		if f.AssetID != "" {
			merr = multierror.Append(merr, fmt.Errorf("%s %d asset %s: %w", f.Entity, f.ID, f.AssetID, f.Err))
		} else {
			merr = multierror.Append(merr, fmt.Errorf("%s %d: %w", f.Entity, f.ID, f.Err))
		}
		c.reports.Report(ctx, reconcile.Event{
			Kind:     kind,
			Entity:   f.Entity,
			EntityID: f.ID,
			HouseID:  houseID,
			AssetID:  f.AssetID,
			Err:      f.Err,
		})
	}

	// A back-reference to a row owned by another house is left alone.
	foreign := func(entity string, id, owner int64) {
		c.logger.Warn("house references a dependent of another house",
			"house_id", houseID, "entity", entity, "id", id, "owner_house_id", owner)
		c.reports.Report(ctx, reconcile.Event{
			Kind:     reconcile.StaleReference,
			Entity:   entity,
			EntityID: id,
			HouseID:  houseID,
			Err:      fmt.Errorf("%s %d belongs to house %d", entity, id, owner),
		})
	}

	for _, id := range hostIDs {
		host, err := c.repos.Hosts.FindByID(ctx, id)
		if err != nil {
			fail(domain.DependentFailure{Entity: "host", ID: id, Err: err}, reconcile.CascadeFailure)
			continue
		}
		if host == nil {
			result.DeletedHosts = append(result.DeletedHosts, id)
			continue
		}
		if host.HouseID != houseID {
			foreign("host", id, host.HouseID)
			continue
		}
		if err := c.repos.Hosts.Remove(ctx, id); err != nil && !isNotFound(err) {
			fail(domain.DependentFailure{Entity: "host", ID: id, Err: err}, reconcile.CascadeFailure)
			continue
		}
		result.DeletedHosts = append(result.DeletedHosts, id)
	}

	for _, id := range alarmIDs {
		alarm, err := c.repos.Alarms.FindByID(ctx, id)
		if err != nil {
			fail(domain.DependentFailure{Entity: "alarm", ID: id, Err: err}, reconcile.CascadeFailure)
			continue
		}
		if alarm == nil {
			result.DeletedAlarms = append(result.DeletedAlarms, id)
			continue
		}
		if alarm.HouseID != houseID {
			foreign("alarm", id, alarm.HouseID)
			continue
		}
		if err := c.repos.Alarms.Remove(ctx, id); err != nil && !isNotFound(err) {
			fail(domain.DependentFailure{Entity: "alarm", ID: id, Err: err}, reconcile.CascadeFailure)
			continue
		}
		result.DeletedAlarms = append(result.DeletedAlarms, id)

		if alarm.Sound.ID == "" {
			continue
		}
		if err := c.assets.Delete(ctx, alarm.Sound.ID); err != nil {
			result.OrphanedAssets = append(result.OrphanedAssets, alarm.Sound.ID)
			fail(domain.DependentFailure{Entity: "alarm", ID: id, AssetID: alarm.Sound.ID, Err: err}, reconcile.OrphanedAsset)
		}
	}

	if err := c.repos.Houses.Remove(ctx, houseID); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("house %d: %w", houseID, err))
		return result, &domain.CascadeError{HouseID: houseID, Failures: failures, Err: merr.ErrorOrNil()}
	}

	if house.Image.ID != "" {
		if err := c.assets.Delete(ctx, house.Image.ID); err != nil {
			result.OrphanedAssets = append(result.OrphanedAssets, house.Image.ID)
			fail(domain.DependentFailure{Entity: "house", ID: houseID, AssetID: house.Image.ID, Err: err}, reconcile.OrphanedAsset)
		}
	}

	c.logger.Info("house deleted",
		"house_id", houseID,
		"hosts_deleted", len(result.DeletedHosts),
		"alarms_deleted", len(result.DeletedAlarms),
		"failures", len(failures),
	)

	if len(failures) > 0 {
		return result, &domain.CascadeError{HouseID: houseID, Failures: failures, Err: merr.ErrorOrNil()}
	}
	return result, nil
}

func (c *Cascade) hostIDs(ctx context.Context, house *domain.House) ([]int64, error) {
	ids := append([]int64(nil), house.HostIDs...)
	hosts, err := c.repos.Hosts.FindByHouse(ctx, house.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	for _, h := range hosts {
		ids = domain.AppendID(ids, h.ID)
	}
	return ids, nil
}

func (c *Cascade) alarmIDs(ctx context.Context, house *domain.House) ([]int64, error) {
	ids := append([]int64(nil), house.AlarmIDs...)
	alarms, err := c.repos.Alarms.Find(ctx, store.AlarmFilter{HouseID: house.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list alarms: %w", err)
	}
	for _, a := range alarms {
		ids = domain.AppendID(ids, a.ID)
	}
	return ids, nil
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
