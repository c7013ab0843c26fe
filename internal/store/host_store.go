package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/homealarm/internal/domain"
)

type HostStore struct {
	db *sql.DB
}

func NewHostStore(db *sql.DB) *HostStore {
	return &HostStore{db: db}
}

func (s *HostStore) Create(ctx context.Context, h *domain.Host) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO hosts (name, house_id, created_at) VALUES (?, ?, ?)
	`, h.Name, h.HouseID, now)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	h.CreatedAt = now
	return nil
}

func (s *HostStore) FindByID(ctx context.Context, id int64) (*domain.Host, error) {
	h := &domain.Host{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, house_id, created_at FROM hosts WHERE id = ?
	`, id).Scan(&h.ID, &h.Name, &h.HouseID, &h.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return h, nil
}

// FindByHouse returns every host row whose back-reference names houseID.
func (s *HostStore) FindByHouse(ctx context.Context, houseID int64) ([]*domain.Host, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, house_id, created_at FROM hosts WHERE house_id = ? ORDER BY id ASC
	`, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*domain.Host
	for rows.Next() {
		h := &domain.Host{}
		if err := rows.Scan(&h.ID, &h.Name, &h.HouseID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hosts: %w", err)
	}
	return hosts, nil
}

func (s *HostStore) Save(ctx context.Context, h *domain.Host) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE hosts SET name = ?, house_id = ? WHERE id = ?
	`, h.Name, h.HouseID, h.ID)
	if err != nil {
		return fmt.Errorf("failed to save host: %w", err)
	}
	return expectOneRow(result, "host", h.ID)
}

func (s *HostStore) Remove(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete host: %w", err)
	}
	return expectOneRow(result, "host", id)
}
