package store

import (
	"database/sql"
	"errors"
	"time"

	"wingmand/pkg/types"
)

// DownloadStore is the typed accessor for DownloadItem rows.
type DownloadStore struct {
	db *sql.DB
}

func scanDownloadItem(row interface{ Scan(...any) error }) (types.DownloadItem, error) {
	var d types.DownloadItem
	if err := row.Scan(&d.ModelRepo, &d.FilePath, &d.TotalBytes, &d.DownloadedBytes,
		&d.Progress, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return types.DownloadItem{}, err
	}
	return d, nil
}

const downloadCols = `model_repo, file_path, total_bytes, downloaded_bytes, progress, status, error, created_at, updated_at`

// Get returns the DownloadItem for (modelRepo, filePath).
func (s *DownloadStore) Get(modelRepo, filePath string) (types.DownloadItem, error) {
	row := s.db.QueryRow(`SELECT `+downloadCols+` FROM download_items WHERE model_repo=? AND file_path=?`, modelRepo, filePath)
	d, err := scanDownloadItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DownloadItem{}, ErrNotFound("download item")
	}
	return d, err
}

// Set inserts or updates a DownloadItem row, keyed by (ModelRepo, FilePath).
func (s *DownloadStore) Set(d types.DownloadItem) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT INTO download_items (`+downloadCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (model_repo, file_path) DO UPDATE SET
			total_bytes=excluded.total_bytes,
			downloaded_bytes=excluded.downloaded_bytes,
			progress=excluded.progress,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		d.ModelRepo, d.FilePath, d.TotalBytes, d.DownloadedBytes, d.Progress, d.Status, d.Error, d.CreatedAt, d.UpdatedAt)
	return err
}

// Remove deletes the DownloadItem row for (modelRepo, filePath), if present.
func (s *DownloadStore) Remove(modelRepo, filePath string) error {
	_, err := s.db.Exec(`DELETE FROM download_items WHERE model_repo=? AND file_path=?`, modelRepo, filePath)
	return err
}

// GetAll returns every DownloadItem, optionally filtered by modelRepo and/or
// filePath when non-empty.
func (s *DownloadStore) GetAll(modelRepo, filePath string) ([]types.DownloadItem, error) {
	query := `SELECT ` + downloadCols + ` FROM download_items WHERE 1=1`
	args := []any{}
	if modelRepo != "" {
		query += ` AND model_repo=?`
		args = append(args, modelRepo)
	}
	if filePath != "" {
		query += ` AND file_path=?`
		args = append(args, filePath)
	}
	query += ` ORDER BY rowid ASC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.DownloadItem
	for rows.Next() {
		d, err := scanDownloadItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByStatus returns all DownloadItems in the given status, FIFO by insertion order.
func (s *DownloadStore) GetByStatus(status types.DownloadItemStatus) ([]types.DownloadItem, error) {
	rows, err := s.db.Query(`SELECT `+downloadCols+` FROM download_items WHERE status=? ORDER BY rowid ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.DownloadItem
	for rows.Next() {
		d, err := scanDownloadItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetNextQueued atomically claims and returns the oldest queued row,
// transitioning it to newStatus in the same transaction so a racing caller
// (e.g. a restarted worker) cannot claim it twice.
func (s *DownloadStore) GetNextQueued(newStatus types.DownloadItemStatus) (types.DownloadItem, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return types.DownloadItem{}, false, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+downloadCols+` FROM download_items WHERE status=? ORDER BY rowid ASC LIMIT 1`, types.DownloadQueued)
	d, err := scanDownloadItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DownloadItem{}, false, nil
	}
	if err != nil {
		return types.DownloadItem{}, false, err
	}

	d.Status = newStatus
	d.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(`UPDATE download_items SET status=?, updated_at=? WHERE model_repo=? AND file_path=?`,
		d.Status, d.UpdatedAt, d.ModelRepo, d.FilePath); err != nil {
		return types.DownloadItem{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return types.DownloadItem{}, false, err
	}
	return d, true, nil
}

// Reset returns any row stuck in a transient status (downloading) back to
// queued. Called at start-up by the Downloader's initialize.
func (s *DownloadStore) Reset() error {
	_, err := s.db.Exec(`UPDATE download_items SET status=?, updated_at=? WHERE status=?`,
		types.DownloadQueued, time.Now().UTC(), types.DownloadDownloading)
	return err
}
