package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/homealarm/internal/domain"
)

type AlarmStore struct {
	db *sql.DB
}

func NewAlarmStore(db *sql.DB) *AlarmStore {
	return &AlarmStore{db: db}
}

// AlarmFilter narrows Find. Zero fields match everything.
type AlarmFilter struct {
	HouseID int64
	HostID  int64
}

const alarmColumns = `id, name, hour, minute, dow, house_id, host_ids, sound_id, sound_url, sound_name, author_id, active, created_at`

// Create inserts a and fills in its ID. Created is set here unless the
// caller already stamped it.
func (s *AlarmStore) Create(ctx context.Context, a *domain.Alarm) error {
	dow, err := encodeDow(a.Dow)
	if err != nil {
		return err
	}
	hostIDs, err := encodeIDs(a.HostIDs)
	if err != nil {
		return err
	}
	if a.Created.IsZero() {
		a.Created = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms (name, hour, minute, dow, house_id, host_ids, sound_id, sound_url, sound_name, author_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Name, a.Hour, a.Minute, dow, a.HouseID, hostIDs, a.Sound.ID, a.Sound.URL, a.Sound.Name, a.AuthorID, a.Active, a.Created)
	if err != nil {
		return fmt.Errorf("failed to create alarm: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

func (s *AlarmStore) FindByID(ctx context.Context, id int64) (*domain.Alarm, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE id = ?`, id)
	a, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}
	return a, nil
}

func (s *AlarmStore) Find(ctx context.Context, filter AlarmFilter) ([]*domain.Alarm, error) {
	var (
		where []string
		args  []any
	)
	if filter.HouseID != 0 {
		where = append(where, "house_id = ?")
		args = append(args, filter.HouseID)
	}
	if filter.HostID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(alarms.host_ids) WHERE json_each.value = ?)")
		args = append(args, filter.HostID)
	}

	query := `SELECT ` + alarmColumns + ` FROM alarms`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY hour ASC, minute ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []*domain.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarms = append(alarms, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alarms: %w", err)
	}
	return alarms, nil
}

// Save overwrites every mutable field of a in a single statement, so the
// sound id, url and name always move together. Created is never rewritten.
func (s *AlarmStore) Save(ctx context.Context, a *domain.Alarm) error {
	dow, err := encodeDow(a.Dow)
	if err != nil {
		return err
	}
	hostIDs, err := encodeIDs(a.HostIDs)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE alarms
		SET name = ?, hour = ?, minute = ?, dow = ?, house_id = ?, host_ids = ?,
		    sound_id = ?, sound_url = ?, sound_name = ?, author_id = ?, active = ?
		WHERE id = ?
	`, a.Name, a.Hour, a.Minute, dow, a.HouseID, hostIDs, a.Sound.ID, a.Sound.URL, a.Sound.Name, a.AuthorID, a.Active, a.ID)
	if err != nil {
		return fmt.Errorf("failed to save alarm: %w", err)
	}
	return expectOneRow(result, "alarm", a.ID)
}

// DetachHost drops hostID from the alarm's host set in place. Other fields,
// and hosts added since the alarm was read, are untouched.
func (s *AlarmStore) DetachHost(ctx context.Context, alarmID, hostID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alarms
		SET host_ids = (SELECT json_group_array(value) FROM json_each(alarms.host_ids) WHERE value != ?)
		WHERE id = ?
	`, hostID, alarmID)
	if err != nil {
		return fmt.Errorf("failed to detach host from alarm: %w", err)
	}
	return expectOneRow(result, "alarm", alarmID)
}

func (s *AlarmStore) Remove(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	return expectOneRow(result, "alarm", id)
}

func scanAlarm(row rowScanner) (*domain.Alarm, error) {
	a := &domain.Alarm{}
	var dow, hostIDs string
	err := row.Scan(&a.ID, &a.Name, &a.Hour, &a.Minute, &dow, &a.HouseID, &hostIDs,
		&a.Sound.ID, &a.Sound.URL, &a.Sound.Name, &a.AuthorID, &a.Active, &a.Created)
	if err != nil {
		return nil, err
	}
	if a.Dow, err = decodeDow(dow); err != nil {
		return nil, err
	}
	if a.HostIDs, err = decodeIDs(hostIDs); err != nil {
		return nil, err
	}
	return a, nil
}
