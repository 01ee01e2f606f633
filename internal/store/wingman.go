package store

import (
	"database/sql"
	"errors"
	"time"

	"wingmand/pkg/types"
)

// WingmanStore is the typed accessor for WingmanItem rows.
type WingmanStore struct {
	db *sql.DB
}

const wingmanCols = `alias, model_repo, file_path, address, port, context_size, gpu_layers, status, error, pid, created_at, updated_at`

func scanWingmanItem(row interface{ Scan(...any) error }) (types.WingmanItem, error) {
	var w types.WingmanItem
	if err := row.Scan(&w.Alias, &w.ModelRepo, &w.FilePath, &w.Address, &w.Port, &w.ContextSize,
		&w.GPULayers, &w.Status, &w.Error, &w.PID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return types.WingmanItem{}, err
	}
	return w, nil
}

// Get returns the WingmanItem for alias.
func (s *WingmanStore) Get(alias string) (types.WingmanItem, error) {
	row := s.db.QueryRow(`SELECT `+wingmanCols+` FROM wingman_items WHERE alias=?`, alias)
	w, err := scanWingmanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.WingmanItem{}, ErrNotFound("inference item")
	}
	return w, err
}

// Set inserts or updates a WingmanItem row, keyed by Alias.
func (s *WingmanStore) Set(w types.WingmanItem) error {
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT INTO wingman_items (`+wingmanCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (alias) DO UPDATE SET
			model_repo=excluded.model_repo,
			file_path=excluded.file_path,
			address=excluded.address,
			port=excluded.port,
			context_size=excluded.context_size,
			gpu_layers=excluded.gpu_layers,
			status=excluded.status,
			error=excluded.error,
			pid=excluded.pid,
			updated_at=excluded.updated_at`,
		w.Alias, w.ModelRepo, w.FilePath, w.Address, w.Port, w.ContextSize,
		w.GPULayers, w.Status, w.Error, w.PID, w.CreatedAt, w.UpdatedAt)
	return err
}

// Remove deletes the WingmanItem row for alias, if present.
func (s *WingmanStore) Remove(alias string) error {
	_, err := s.db.Exec(`DELETE FROM wingman_items WHERE alias=?`, alias)
	return err
}

// GetAll returns every WingmanItem, ordered by insertion.
func (s *WingmanStore) GetAll() ([]types.WingmanItem, error) {
	rows, err := s.db.Query(`SELECT ` + wingmanCols + ` FROM wingman_items ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.WingmanItem
	for rows.Next() {
		w, err := scanWingmanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetByStatus returns all WingmanItems in the given status, FIFO by insertion order.
func (s *WingmanStore) GetByStatus(status types.WingmanItemStatus) ([]types.WingmanItem, error) {
	rows, err := s.db.Query(`SELECT `+wingmanCols+` FROM wingman_items WHERE status=? ORDER BY rowid ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.WingmanItem
	for rows.Next() {
		w, err := scanWingmanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetAllActive returns every WingmanItem whose status is non-terminal. Used
// to enforce invariant I1 (at most one active inference at a time) and to
// drive the Supervisor's cancellation loop.
func (s *WingmanStore) GetAllActive() ([]types.WingmanItem, error) {
	all, err := s.GetAll()
	if err != nil {
		return nil, err
	}
	var out []types.WingmanItem
	for _, w := range all {
		if w.Status.IsActive() {
			out = append(out, w)
		}
	}
	return out, nil
}

// GetNextQueued atomically claims and returns the oldest queued row,
// transitioning it to newStatus in the same transaction.
func (s *WingmanStore) GetNextQueued(newStatus types.WingmanItemStatus) (types.WingmanItem, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return types.WingmanItem{}, false, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+wingmanCols+` FROM wingman_items WHERE status=? ORDER BY rowid ASC LIMIT 1`, types.WingmanQueued)
	w, err := scanWingmanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.WingmanItem{}, false, nil
	}
	if err != nil {
		return types.WingmanItem{}, false, err
	}

	w.Status = newStatus
	w.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(`UPDATE wingman_items SET status=?, updated_at=? WHERE alias=?`, w.Status, w.UpdatedAt, w.Alias); err != nil {
		return types.WingmanItem{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return types.WingmanItem{}, false, err
	}
	return w, true, nil
}

// PortInUse reports whether port is already claimed by another active
// WingmanItem, enforcing invariant I3 (no two active sessions share a port).
func (s *WingmanStore) PortInUse(port int, excludeAlias string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM wingman_items
		WHERE port=? AND alias<>? AND status IN (?, ?, ?, ?)`,
		port, excludeAlias, types.WingmanQueued, types.WingmanPreparing, types.WingmanInferring, types.WingmanCancelling,
	).Scan(&count)
	return count > 0, err
}

// Reset returns any row stuck in a transient status (preparing, inferring,
// cancelling) to error, with msg recorded; queued rows are left queued.
// Called at start-up by the Inference Supervisor's initialize, after the
// Lifecycle Manager's crash reconciliation has run.
func (s *WingmanStore) Reset(msg string) error {
	_, err := s.db.Exec(`
		UPDATE wingman_items SET status=?, error=?, updated_at=?
		WHERE status IN (?, ?, ?)`,
		types.WingmanError, msg, time.Now().UTC(),
		types.WingmanPreparing, types.WingmanInferring, types.WingmanCancelling)
	return err
}
