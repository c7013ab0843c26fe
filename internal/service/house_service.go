package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/homealarm/internal/assetstore"
	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/validation"
)

const imageFolder = "houses"

type HouseService struct {
	repos   Repositories
	assets  assetStore
	reports reporter
	cascade *Cascade
	logger  *slog.Logger
}

func NewHouseService(repos Repositories, assets assetStore, reports reporter, logger *slog.Logger) *HouseService {
	return &HouseService{
		repos:   repos,
		assets:  assets,
		reports: reports,
		cascade: NewCascade(repos, assets, reports, logger),
		logger:  logger,
	}
}

// HouseDetail bundles a house with its resolved hosts and alarms.
type HouseDetail struct {
	*domain.House
	Hosts  []*domain.Host
	Alarms []*AlarmDetail
}

func (s *HouseService) Create(ctx context.Context, authorID string, in validation.HouseInput, image *assetstore.File) (*domain.House, error) {
	if err := validation.ValidateHouse(in); err != nil {
		return nil, err
	}
	if image != nil {
		if err := validation.CheckImageFile(image.Name); err != nil {
			return nil, err
		}
	}

	house := &domain.House{
		Name:     strings.TrimSpace(in.Name),
		AuthorID: authorID,
		HostIDs:  []int64{},
		AlarmIDs: []int64{},
	}
	if image != nil {
		ref, err := s.uploadImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		house.Image = ref
	}

	if err := s.repos.Houses.Create(ctx, house); err != nil {
		discardAsset(ctx, s.assets, s.reports, s.logger, "house", 0, house.Image.ID)
		return nil, fmt.Errorf("failed to create house: %w", err)
	}

	s.logger.Info("house created", "house_id", house.ID, "has_image", !house.Image.IsZero())
	return house, nil
}

// Update renames the house and optionally replaces its image. The previous
// image is deleted only once the new one is committed.
func (s *HouseService) Update(ctx context.Context, id int64, in validation.HouseInput, image *assetstore.File) (*domain.House, error) {
	current, err := s.repos.Houses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if current == nil {
		return nil, &domain.NotFoundError{Entity: "house", ID: id}
	}
	if err := validation.ValidateHouse(in); err != nil {
		return nil, err
	}
	if image != nil {
		if err := validation.CheckImageFile(image.Name); err != nil {
			return nil, err
		}
	}

	next := *current
	next.Name = strings.TrimSpace(in.Name)
	if image != nil {
		ref, err := s.uploadImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		next.Image = ref
	}

	if err := s.repos.Houses.SaveProfile(ctx, &next); err != nil {
		if image != nil {
			discardAsset(ctx, s.assets, s.reports, s.logger, "house", id, next.Image.ID)
		}
		return nil, fmt.Errorf("failed to save house: %w", err)
	}
	if image != nil && current.Image.ID != "" {
		discardAsset(ctx, s.assets, s.reports, s.logger, "house", id, current.Image.ID)
	}
	if fresh, err := s.repos.Houses.FindByID(ctx, id); err == nil && fresh != nil {
		next.HostIDs, next.AlarmIDs = fresh.HostIDs, fresh.AlarmIDs
	}

	s.logger.Info("house updated", "house_id", id, "image_replaced", image != nil)
	return &next, nil
}

// Get resolves the house's hosts and alarms. Dangling references are
// skipped.
func (s *HouseService) Get(ctx context.Context, id int64) (*HouseDetail, error) {
	house, err := s.repos.Houses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if house == nil {
		return nil, &domain.NotFoundError{Entity: "house", ID: id}
	}

	hosts, err := resolveHosts(ctx, s.repos.Hosts, house.HostIDs)
	if err != nil {
		return nil, err
	}

	alarms := make([]*AlarmDetail, 0, len(house.AlarmIDs))
	for _, alarmID := range house.AlarmIDs {
		a, err := s.repos.Alarms.FindByID(ctx, alarmID)
		if err != nil {
			return nil, fmt.Errorf("failed to get alarm %d: %w", alarmID, err)
		}
		if a == nil {
			continue
		}
		alarmHosts, err := resolveHosts(ctx, s.repos.Hosts, a.HostIDs)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, &AlarmDetail{Alarm: a, Hosts: alarmHosts})
	}

	return &HouseDetail{House: house, Hosts: hosts, Alarms: alarms}, nil
}

func (s *HouseService) List(ctx context.Context) ([]*domain.House, error) {
	return s.repos.Houses.Find(ctx)
}

// Delete removes the house and every dependent. See Cascade.DeleteHouse.
func (s *HouseService) Delete(ctx context.Context, id int64) (*CascadeResult, error) {
	return s.cascade.DeleteHouse(ctx, id)
}

// uploadImage stores the image with an eager thumbnail. The stored URL is the
// thumbnail's.
func (s *HouseService) uploadImage(ctx context.Context, f assetstore.File) (domain.AssetRef, error) {
	res, err := s.assets.Upload(ctx, f, assetstore.Options{
		ResourceType: "image",
		Folder:       imageFolder,
		Eager:        []assetstore.Transform{assetstore.HouseThumb},
	})
	if err != nil {
		s.logger.Error("image upload failed", "name", f.Name, "error", err)
		return domain.AssetRef{}, asUploadError(err, "image "+f.Name)
	}
	url := res.SecureURL
	if len(res.Eager) > 0 {
		url = res.Eager[0].SecureURL
	}
	return domain.AssetRef{ID: res.ID, URL: url, Name: f.Name}, nil
}
