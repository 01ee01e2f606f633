package store

import (
	"testing"

	"wingmand/pkg/types"
)

func TestWingmanSetAndGet(t *testing.T) {
	s := openTestStore(t)
	w := types.WingmanItem{Alias: "llama3", ModelRepo: "org/repo", FilePath: "m.gguf", Status: types.WingmanQueued}
	if err := s.Wingmen.Set(w); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Wingmen.Get("llama3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WingmanQueued {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestWingmanGetAllActive(t *testing.T) {
	s := openTestStore(t)
	active := types.WingmanItem{Alias: "a", Status: types.WingmanInferring}
	done := types.WingmanItem{Alias: "b", Status: types.WingmanComplete}
	if err := s.Wingmen.Set(active); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Wingmen.Set(done); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Wingmen.GetAllActive()
	if err != nil {
		t.Fatalf("GetAllActive: %v", err)
	}
	if len(got) != 1 || got[0].Alias != "a" {
		t.Fatalf("expected only the active item, got %+v", got)
	}
}

func TestWingmanPortInUse(t *testing.T) {
	s := openTestStore(t)
	if err := s.Wingmen.Set(types.WingmanItem{Alias: "a", Port: 8900, Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	inUse, err := s.Wingmen.PortInUse(8900, "b")
	if err != nil {
		t.Fatalf("PortInUse: %v", err)
	}
	if !inUse {
		t.Fatalf("expected port in use")
	}
	free, err := s.Wingmen.PortInUse(8900, "a")
	if err != nil {
		t.Fatalf("PortInUse self-exclude: %v", err)
	}
	if free {
		t.Fatalf("expected port free when excluding its own owner")
	}
}

func TestWingmanResetClearsTransientStatuses(t *testing.T) {
	s := openTestStore(t)
	if err := s.Wingmen.Set(types.WingmanItem{Alias: "a", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Wingmen.Reset("crash recovery"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err := s.Wingmen.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WingmanError {
		t.Fatalf("expected error status after Reset, got %q", got.Status)
	}
	if got.Error != "crash recovery" {
		t.Fatalf("expected Error message preserved, got %q", got.Error)
	}
}

func TestWingmanGetNextQueuedFIFO(t *testing.T) {
	s := openTestStore(t)
	if err := s.Wingmen.Set(types.WingmanItem{Alias: "first", Status: types.WingmanQueued}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Wingmen.Set(types.WingmanItem{Alias: "second", Status: types.WingmanQueued}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	w, ok, err := s.Wingmen.GetNextQueued(types.WingmanPreparing)
	if err != nil || !ok {
		t.Fatalf("GetNextQueued: %v ok=%v", err, ok)
	}
	if w.Alias != "first" {
		t.Fatalf("expected FIFO order, got %q", w.Alias)
	}
}
