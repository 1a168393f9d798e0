package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/slotsync/internal/persistence"
)

// TimeslotRepository implements persistence.TimeslotRepository using SQLite.
// Every batch write runs inside one transaction, which is what gives the
// store its all-or-nothing visibility: a concurrent reader sees the state
// before the commit or after it, never between.
type TimeslotRepository struct {
	pool *ConnectionPool
}

// NewTimeslotRepository creates a new SQLite time-slot repository.
func NewTimeslotRepository(pool *ConnectionPool) *TimeslotRepository {
	return &TimeslotRepository{pool: pool}
}

func (r *TimeslotRepository) CreateTimeslots(ctx context.Context, slots []persistence.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, slot := range slots {
			if err := insertSlot(tx, slot); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TimeslotRepository) GetTimeslots(ctx context.Context, ids []string) ([]persistence.TimeSlot, error) {
	if len(ids) == 0 {
		return []persistence.TimeSlot{}, nil
	}

	query := `
		SELECT id, project_id, user_id, created_by, start_time, end_time,
		       status, notes, label, color, is_locked, created_at, updated_at
		FROM timeslots WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.pool.db.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *TimeslotRepository) UpdateTimeslots(ctx context.Context, slots []persistence.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, slot := range slots {
			result, err := tx.Exec(`
				UPDATE timeslots
				SET user_id = ?, created_by = ?, start_time = ?, end_time = ?,
				    status = ?, notes = ?, label = ?, color = ?, is_locked = ?, updated_at = ?
				WHERE id = ?`,
				slot.UserID,
				slot.CreatedBy,
				formatTime(slot.Start),
				formatTime(slot.End),
				slot.Status,
				slot.Notes,
				slot.Label,
				slot.Color,
				slot.IsLocked,
				formatTime(slot.UpdatedAt),
				slot.ID,
			)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}
		}
		return nil
	})
}

func (r *TimeslotRepository) DeleteTimeslots(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`DELETE FROM timeslots WHERE id IN (`+placeholders(len(ids))+`)`,
			idArgs(ids)...)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != len(ids) {
			return persistence.ErrNotFound
		}
		deleted = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *TimeslotRepository) ReplaceTimeslots(ctx context.Context, removeIDs []string, merged persistence.TimeSlot) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if len(removeIDs) > 0 {
			result, err := tx.Exec(
				`DELETE FROM timeslots WHERE id IN (`+placeholders(len(removeIDs))+`)`,
				idArgs(removeIDs)...)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if int(affected) != len(removeIDs) {
				return persistence.ErrNotFound
			}
		}
		return insertSlot(tx, merged)
	})
}

func (r *TimeslotRepository) ListTimeslots(ctx context.Context, filter persistence.TimeslotFilter) ([]persistence.TimeSlot, error) {
	query := `
		SELECT id, project_id, user_id, created_by, start_time, end_time,
		       status, notes, label, color, is_locked, created_at, updated_at
		FROM timeslots`
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func insertSlot(tx *sql.Tx, slot persistence.TimeSlot) error {
	_, err := tx.Exec(`
		INSERT INTO timeslots (id, project_id, user_id, created_by, start_time, end_time,
		                       status, notes, label, color, is_locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID,
		slot.ProjectID,
		slot.UserID,
		slot.CreatedBy,
		formatTime(slot.Start),
		formatTime(slot.End),
		slot.Status,
		slot.Notes,
		slot.Label,
		slot.Color,
		slot.IsLocked,
		formatTime(slot.CreatedAt),
		formatTime(slot.UpdatedAt),
	)
	return mapError(err)
}

func collectSlots(rows *sql.Rows) ([]persistence.TimeSlot, error) {
	slots := make([]persistence.TimeSlot, 0)
	for rows.Next() {
		var slot persistence.TimeSlot
		var start, end, createdAt, updatedAt string
		err := rows.Scan(&slot.ID, &slot.ProjectID, &slot.UserID, &slot.CreatedBy,
			&start, &end, &slot.Status, &slot.Notes, &slot.Label, &slot.Color,
			&slot.IsLocked, &createdAt, &updatedAt)
		if err != nil {
			return nil, mapError(err)
		}
		slot.Start = parseTime(start)
		slot.End = parseTime(end)
		slot.CreatedAt = parseTime(createdAt)
		slot.UpdatedAt = parseTime(updatedAt)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return slots, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
