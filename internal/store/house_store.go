package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/homealarm/internal/domain"
)

type HouseStore struct {
	db *sql.DB
}

func NewHouseStore(db *sql.DB) *HouseStore {
	return &HouseStore{db: db}
}

const houseColumns = `id, name, image_id, image_url, host_ids, alarm_ids, author_id, created_at, updated_at`

// Create inserts h and fills in its ID and timestamps.
func (s *HouseStore) Create(ctx context.Context, h *domain.House) error {
	hostIDs, err := encodeIDs(h.HostIDs)
	if err != nil {
		return err
	}
	alarmIDs, err := encodeIDs(h.AlarmIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO houses (name, image_id, image_url, host_ids, alarm_ids, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.Name, h.Image.ID, h.Image.URL, hostIDs, alarmIDs, h.AuthorID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create house: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// FindByID returns nil, nil when no house has the id.
func (s *HouseStore) FindByID(ctx context.Context, id int64) (*domain.House, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+houseColumns+` FROM houses WHERE id = ?`, id)
	h, err := scanHouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	return h, nil
}

func (s *HouseStore) Find(ctx context.Context) ([]*domain.House, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+houseColumns+` FROM houses ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list houses: %w", err)
	}
	defer rows.Close()

	var houses []*domain.House
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan house: %w", err)
		}
		houses = append(houses, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating houses: %w", err)
	}

	return houses, nil
}

// SaveRefs writes the back-reference sets of h and nothing else. There is
// no version check: the last writer wins.
func (s *HouseStore) SaveRefs(ctx context.Context, h *domain.House) error {
	hostIDs, err := encodeIDs(h.HostIDs)
	if err != nil {
		return err
	}
	alarmIDs, err := encodeIDs(h.AlarmIDs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE houses SET host_ids = ?, alarm_ids = ?, updated_at = ? WHERE id = ?
	`, hostIDs, alarmIDs, now, h.ID)
	if err != nil {
		return fmt.Errorf("failed to save house references: %w", err)
	}
	if err := expectOneRow(result, "house", h.ID); err != nil {
		return err
	}
	h.UpdatedAt = now
	return nil
}

// SaveProfile writes the name and image of h. The back-reference sets are
// left as stored.
func (s *HouseStore) SaveProfile(ctx context.Context, h *domain.House) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE houses SET name = ?, image_id = ?, image_url = ?, updated_at = ? WHERE id = ?
	`, h.Name, h.Image.ID, h.Image.URL, now, h.ID)
	if err != nil {
		return fmt.Errorf("failed to save house: %w", err)
	}
	if err := expectOneRow(result, "house", h.ID); err != nil {
		return err
	}
	h.UpdatedAt = now
	return nil
}

func (s *HouseStore) Remove(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM houses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete house: %w", err)
	}
	return expectOneRow(result, "house", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHouse(row rowScanner) (*domain.House, error) {
	h := &domain.House{}
	var hostIDs, alarmIDs string
	err := row.Scan(&h.ID, &h.Name, &h.Image.ID, &h.Image.URL, &hostIDs, &alarmIDs, &h.AuthorID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if h.HostIDs, err = decodeIDs(hostIDs); err != nil {
		return nil, err
	}
	if h.AlarmIDs, err = decodeIDs(alarmIDs); err != nil {
		return nil, err
	}
	return h, nil
}

func expectOneRow(result sql.Result, entity string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
