package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/store"
	"github.com/vbonduro/homealarm/internal/validation"
)

type HostService struct {
	repos   Repositories
	reports reporter
	logger  *slog.Logger
}

func NewHostService(repos Repositories, reports reporter, logger *slog.Logger) *HostService {
	return &HostService{repos: repos, reports: reports, logger: logger}
}

// Create persists the host and then records it on the house.
func (s *HostService) Create(ctx context.Context, houseID int64, name string) (*domain.Host, error) {
	if err := validation.ValidateHost(validation.HostInput{Name: name}); err != nil {
		return nil, err
	}
	house, err := s.repos.Houses.FindByID(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if house == nil {
		return nil, &domain.NotFoundError{Entity: "house", ID: houseID}
	}

	host := &domain.Host{Name: strings.TrimSpace(name), HouseID: houseID}
	if err := s.repos.Hosts.Create(ctx, host); err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	err = updateHouse(ctx, s.repos.Houses, houseID, func(h *domain.House) {
		h.HostIDs = domain.AppendID(h.HostIDs, host.ID)
	})
	if err != nil {
		s.reports.Report(ctx, reconcile.Event{
			Kind:     reconcile.PartialCommit,
			Entity:   "host",
			EntityID: host.ID,
			HouseID:  houseID,
			Err:      err,
		})
		return nil, &domain.PartialCommitError{Entity: "host", EntityID: host.ID, HouseID: houseID, Err: err}
	}

	s.logger.Info("host created", "host_id", host.ID, "house_id", houseID)
	return host, nil
}

// Delete detaches the host from its house and from every alarm, then removes
// the record. A host that is the only target of an alarm cannot be deleted.
func (s *HostService) Delete(ctx context.Context, hostID, houseID int64) error {
	host, err := s.repos.Hosts.FindByID(ctx, hostID)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil || host.HouseID != houseID {
		return &domain.NotFoundError{Entity: "host", ID: hostID}
	}

	alarms, err := s.repos.Alarms.Find(ctx, store.AlarmFilter{HostID: hostID})
	if err != nil {
		return fmt.Errorf("failed to list alarms for host: %w", err)
	}
	for _, a := range alarms {
		if len(a.HostIDs) == 1 {
			return &domain.ValidationError{
				Reason:  domain.HostInUse,
				Field:   "host",
				Message: fmt.Sprintf("Host is the only host of alarm %q", a.Name),
			}
		}
	}

	err = updateHouse(ctx, s.repos.Houses, houseID, func(h *domain.House) {
		h.HostIDs = domain.RemoveID(h.HostIDs, hostID)
	})
	var nf *domain.NotFoundError
	if err != nil && !(errors.As(err, &nf) && nf.Entity == "house") {
		return fmt.Errorf("failed to detach host from house: %w", err)
	}

	for _, a := range alarms {
		if err := s.repos.Alarms.DetachHost(ctx, a.ID, hostID); err != nil {
			s.reports.Report(ctx, reconcile.Event{
				Kind:     reconcile.StaleReference,
				Entity:   "host",
				EntityID: hostID,
				HouseID:  houseID,
				Err:      fmt.Errorf("alarm %d still references host: %w", a.ID, err),
			})
			return fmt.Errorf("failed to detach host from alarm %d: %w", a.ID, err)
		}
	}

	if err := s.repos.Hosts.Remove(ctx, hostID); err != nil {
		return fmt.Errorf("failed to remove host: %w", err)
	}

	s.logger.Info("host deleted", "host_id", hostID, "house_id", houseID, "alarms_updated", len(alarms))
	return nil
}
