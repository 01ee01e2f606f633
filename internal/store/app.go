package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wingmand/pkg/types"
)

// AppStore is the typed accessor for AppItem rows: each service publishes
// its current self-status under a well-known name (DownloadServerAppName,
// WingmanServiceAppName) as an opaque JSON blob in Value.
type AppStore struct {
	db *sql.DB
}

// Get returns the raw AppItem for name.
func (s *AppStore) Get(name string) (types.AppItem, error) {
	var a types.AppItem
	err := s.db.QueryRow(`SELECT name, value, created_at, updated_at FROM app_items WHERE name=?`, name).
		Scan(&a.Name, &a.Value, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AppItem{}, ErrNotFound("app item")
	}
	return a, err
}

// Set inserts or updates the raw AppItem for name.
func (s *AppStore) Set(a types.AppItem) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.db.Exec(`
		INSERT INTO app_items (name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		a.Name, a.Value, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetDownloadServerApp decodes the Downloader's published self-status.
// A missing row reports AppStopped, matching the state of a never-started service.
func (s *AppStore) GetDownloadServerApp() (types.DownloadServerAppItem, error) {
	a, err := s.Get(types.DownloadServerAppName)
	if IsNotFound(err) {
		return types.DownloadServerAppItem{Status: types.AppStopped}, nil
	}
	if err != nil {
		return types.DownloadServerAppItem{}, err
	}
	var out types.DownloadServerAppItem
	if err := json.Unmarshal([]byte(a.Value), &out); err != nil {
		return types.DownloadServerAppItem{}, fmt.Errorf("decode %s: %w", types.DownloadServerAppName, err)
	}
	return out, nil
}

// SetDownloadServerApp encodes and publishes the Downloader's self-status.
func (s *AppStore) SetDownloadServerApp(item types.DownloadServerAppItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", types.DownloadServerAppName, err)
	}
	return s.Set(types.AppItem{Name: types.DownloadServerAppName, Value: string(raw)})
}

// GetWingmanServiceApp decodes the Inference Supervisor's published self-status.
func (s *AppStore) GetWingmanServiceApp() (types.WingmanServiceAppItem, error) {
	a, err := s.Get(types.WingmanServiceAppName)
	if IsNotFound(err) {
		return types.WingmanServiceAppItem{Status: types.AppStopped}, nil
	}
	if err != nil {
		return types.WingmanServiceAppItem{}, err
	}
	var out types.WingmanServiceAppItem
	if err := json.Unmarshal([]byte(a.Value), &out); err != nil {
		return types.WingmanServiceAppItem{}, fmt.Errorf("decode %s: %w", types.WingmanServiceAppName, err)
	}
	return out, nil
}

// SetWingmanServiceApp encodes and publishes the Inference Supervisor's self-status.
func (s *AppStore) SetWingmanServiceApp(item types.WingmanServiceAppItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", types.WingmanServiceAppName, err)
	}
	return s.Set(types.AppItem{Name: types.WingmanServiceAppName, Value: string(raw)})
}
