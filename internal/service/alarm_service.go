package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/homealarm/internal/assetstore"
	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/validation"
)

const soundFolder = "sounds"

type AlarmService struct {
	repos   Repositories
	assets  assetStore
	reports reporter
	logger  *slog.Logger
	now     func() time.Time
}

func NewAlarmService(repos Repositories, assets assetStore, reports reporter, logger *slog.Logger) *AlarmService {
	return &AlarmService{
		repos:   repos,
		assets:  assets,
		reports: reports,
		logger:  logger,
		now:     time.Now,
	}
}

// AlarmUpdate carries the replacement fields of an alarm. Active is the raw
// flag as submitted; nil means it was absent.
type AlarmUpdate struct {
	validation.AlarmInput
	Active *string
}

// AlarmDetail bundles an alarm with the hosts it rings on.
type AlarmDetail struct {
	*domain.Alarm
	Hosts []*domain.Host
}

// ResolveActive maps the submitted active flag to a boolean. Only the exact
// value "true" enables the alarm.
func ResolveActive(raw *string) bool {
	return raw != nil && *raw == "true"
}

// Create validates the input, uploads the optional sound, persists the alarm
// and finally records it on the owning house.
func (s *AlarmService) Create(ctx context.Context, houseID int64, authorID string, in validation.AlarmInput, sound *assetstore.File) (*domain.Alarm, error) {
	if err := validation.ValidateAlarm(in); err != nil {
		return nil, err
	}
	if sound != nil {
		if err := validation.CheckSoundFile(sound.Name); err != nil {
			return nil, err
		}
	}

	house, err := s.repos.Houses.FindByID(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if house == nil {
		return nil, &domain.NotFoundError{Entity: "house", ID: houseID}
	}
	hostIDs := validation.NormalizeIDs(in.HostIDs)
	if err := s.checkHosts(ctx, houseID, hostIDs); err != nil {
		return nil, err
	}

	alarm := &domain.Alarm{
		Name:     strings.TrimSpace(in.Name),
		Hour:     in.Hour,
		Minute:   in.Minute,
		Dow:      validation.NormalizeDow(in.Dow),
		HostIDs:  hostIDs,
		HouseID:  houseID,
		AuthorID: authorID,
		Active:   true,
		Created:  s.now().UTC(),
	}

	if sound != nil {
		ref, err := s.uploadSound(ctx, *sound)
		if err != nil {
			return nil, err
		}
		alarm.Sound = ref
	}

	if err := s.repos.Alarms.Create(ctx, alarm); err != nil {
		discardAsset(ctx, s.assets, s.reports, s.logger, "alarm", 0, alarm.Sound.ID)
		return nil, fmt.Errorf("failed to create alarm: %w", err)
	}

	err = updateHouse(ctx, s.repos.Houses, houseID, func(h *domain.House) {
		h.AlarmIDs = domain.AppendID(h.AlarmIDs, alarm.ID)
	})
	if err != nil {
		s.reports.Report(ctx, reconcile.Event{
			Kind:     reconcile.PartialCommit,
			Entity:   "alarm",
			EntityID: alarm.ID,
			HouseID:  houseID,
			Err:      err,
		})
		return nil, &domain.PartialCommitError{Entity: "alarm", EntityID: alarm.ID, HouseID: houseID, Err: err}
	}

	s.logger.Info("alarm created", "alarm_id", alarm.ID, "house_id", houseID, "has_sound", !alarm.Sound.IsZero())
	return alarm, nil
}

// Update replaces the alarm's fields. A new sound is uploaded before the
// record is saved; the old one is deleted only after the save succeeds.
func (s *AlarmService) Update(ctx context.Context, alarmID, houseID int64, authorID string, upd AlarmUpdate, sound *assetstore.File) (*domain.Alarm, error) {
	current, err := s.repos.Alarms.FindByID(ctx, alarmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}
	if current == nil || current.HouseID != houseID {
		return nil, &domain.NotFoundError{Entity: "alarm", ID: alarmID}
	}

	if err := validation.ValidateAlarm(upd.AlarmInput); err != nil {
		return nil, err
	}
	if sound != nil {
		if err := validation.CheckSoundFile(sound.Name); err != nil {
			return nil, err
		}
	}
	hostIDs := validation.NormalizeIDs(upd.HostIDs)
	if err := s.checkHosts(ctx, current.HouseID, hostIDs); err != nil {
		return nil, err
	}

	next := *current
	next.Name = strings.TrimSpace(upd.Name)
	next.Hour = upd.Hour
	next.Minute = upd.Minute
	next.Dow = validation.NormalizeDow(upd.Dow)
	next.HostIDs = hostIDs
	next.Active = ResolveActive(upd.Active)
	next.AuthorID = authorID

	if sound != nil {
		ref, err := s.uploadSound(ctx, *sound)
		if err != nil {
			return nil, err
		}
		next.Sound = ref
	}

	if err := s.repos.Alarms.Save(ctx, &next); err != nil {
		if sound != nil {
			discardAsset(ctx, s.assets, s.reports, s.logger, "alarm", alarmID, next.Sound.ID)
		}
		return nil, fmt.Errorf("failed to save alarm: %w", err)
	}

	if sound != nil && current.Sound.ID != "" {
		discardAsset(ctx, s.assets, s.reports, s.logger, "alarm", alarmID, current.Sound.ID)
	}

	s.logger.Info("alarm updated", "alarm_id", alarmID, "active", next.Active, "sound_replaced", sound != nil)
	return &next, nil
}

// Delete removes the alarm from its house, then its sound, then the record.
// Any failure stops the sequence; later steps are not attempted.
func (s *AlarmService) Delete(ctx context.Context, alarmID, houseID int64) error {
	alarm, err := s.repos.Alarms.FindByID(ctx, alarmID)
	if err != nil {
		return fmt.Errorf("failed to get alarm: %w", err)
	}
	if alarm == nil || alarm.HouseID != houseID {
		return &domain.NotFoundError{Entity: "alarm", ID: alarmID}
	}

	err = updateHouse(ctx, s.repos.Houses, houseID, func(h *domain.House) {
		h.AlarmIDs = domain.RemoveID(h.AlarmIDs, alarmID)
	})
	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &nf) && nf.Entity == "house":
		s.logger.Warn("alarm belongs to a missing house", "alarm_id", alarmID, "house_id", houseID)
	case err != nil:
		return fmt.Errorf("failed to detach alarm from house: %w", err)
	}

	if alarm.Sound.ID != "" {
		if err := s.assets.Delete(ctx, alarm.Sound.ID); err != nil {
			s.reports.Report(ctx, reconcile.Event{
				Kind:     reconcile.StaleReference,
				Entity:   "alarm",
				EntityID: alarmID,
				HouseID:  houseID,
				AssetID:  alarm.Sound.ID,
				Err:      err,
			})
			return asDeleteError(err, alarm.Sound.ID)
		}
	}

	if err := s.repos.Alarms.Remove(ctx, alarmID); err != nil {
		s.reports.Report(ctx, reconcile.Event{
			Kind:     reconcile.StaleReference,
			Entity:   "alarm",
			EntityID: alarmID,
			HouseID:  houseID,
			AssetID:  alarm.Sound.ID,
			Err:      err,
		})
		return fmt.Errorf("failed to remove alarm: %w", err)
	}

	s.logger.Info("alarm deleted", "alarm_id", alarmID, "house_id", houseID)
	return nil
}

// Get returns the alarm with its hosts. Host ids that no longer resolve are
// skipped.
func (s *AlarmService) Get(ctx context.Context, alarmID, houseID int64) (*AlarmDetail, error) {
	alarm, err := s.repos.Alarms.FindByID(ctx, alarmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}
	if alarm == nil || alarm.HouseID != houseID {
		return nil, &domain.NotFoundError{Entity: "alarm", ID: alarmID}
	}
	hosts, err := resolveHosts(ctx, s.repos.Hosts, alarm.HostIDs)
	if err != nil {
		return nil, err
	}
	return &AlarmDetail{Alarm: alarm, Hosts: hosts}, nil
}

func (s *AlarmService) uploadSound(ctx context.Context, f assetstore.File) (domain.AssetRef, error) {
	res, err := s.assets.Upload(ctx, f, assetstore.Options{ResourceType: "video", Folder: soundFolder})
	if err != nil {
		s.logger.Error("sound upload failed", "name", f.Name, "error", err)
		return domain.AssetRef{}, asUploadError(err, "sound "+f.Name)
	}
	return domain.AssetRef{ID: res.ID, URL: res.SecureURL, Name: f.Name}, nil
}

// checkHosts rejects host ids that do not belong to the house.
func (s *AlarmService) checkHosts(ctx context.Context, houseID int64, hostIDs []int64) error {
	for _, id := range hostIDs {
		host, err := s.repos.Hosts.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get host: %w", err)
		}
		if host == nil || host.HouseID != houseID {
			return &domain.ValidationError{
				Reason:  domain.UnknownHost,
				Field:   "hosts",
				Message: fmt.Sprintf("Host %d does not belong to this house", id),
			}
		}
	}
	return nil
}

func resolveHosts(ctx context.Context, hosts hostRepository, ids []int64) ([]*domain.Host, error) {
	out := make([]*domain.Host, 0, len(ids))
	for _, id := range ids {
		h, err := hosts.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get host %d: %w", id, err)
		}
		if h != nil {
			out = append(out, h)
		}
	}
	return out, nil
}
