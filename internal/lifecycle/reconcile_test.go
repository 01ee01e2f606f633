package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"wingmand/internal/store"
	"wingmand/pkg/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestReconcileKillFileMarksActiveItemsError(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, killFileName), nil, 0o644); err != nil {
		t.Fatalf("write kill file: %v", err)
	}

	result, err := reconcile(st, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.killFileFound {
		t.Fatal("expected killFileFound = true")
	}
	if result.anyPreparing {
		t.Fatal("expected anyPreparing = false")
	}
	item, err := st.Wingmen.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != types.WingmanError {
		t.Fatalf("status = %s", item.Status)
	}
}

func TestReconcileKillFilePreparingItem(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanPreparing}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, killFileName), nil, 0o644); err != nil {
		t.Fatalf("write kill file: %v", err)
	}

	result, err := reconcile(st, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.anyPreparing {
		t.Fatal("expected anyPreparing = true")
	}
}

func TestReconcileExitFileOnlyMarksPreparing(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanPreparing}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a2", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, exitFileName), nil, 0o644); err != nil {
		t.Fatalf("write exit file: %v", err)
	}

	if _, err := reconcile(st, dir); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	a1, _ := st.Wingmen.Get("a1")
	if a1.Status != types.WingmanError {
		t.Fatalf("a1 status = %s", a1.Status)
	}
	a2, _ := st.Wingmen.Get("a2")
	if a2.Status != types.WingmanInferring {
		t.Fatalf("a2 status should be untouched, got %s", a2.Status)
	}
}

func TestReconcileNoSentinelsNoPriorRunIsNoop(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	result, err := reconcile(st, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.killFileFound {
		t.Fatal("expected killFileFound = false")
	}
	a1, _ := st.Wingmen.Get("a1")
	if a1.Status != types.WingmanInferring {
		t.Fatalf("status should be untouched without a prior-run record, got %s", a1.Status)
	}
}

func TestReconcilePriorRunInferringMarksActiveError(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Apps.SetWingmanServiceApp(types.WingmanServiceAppItem{Status: types.AppInferring, Alias: "a1"}); err != nil {
		t.Fatalf("SetWingmanServiceApp: %v", err)
	}
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := reconcile(st, dir); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	a1, _ := st.Wingmen.Get("a1")
	if a1.Status != types.WingmanError || a1.Error != oomDuringInferenceMessage {
		t.Fatalf("unexpected item: %+v", a1)
	}
}

func TestReconcilePriorRunReadyLeavesInferringAlone(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t)
	if err := st.Apps.SetWingmanServiceApp(types.WingmanServiceAppItem{Status: types.AppReady}); err != nil {
		t.Fatalf("SetWingmanServiceApp: %v", err)
	}
	// A ready prior status with a lingering preparing row still needs repair.
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a1", Status: types.WingmanPreparing}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// An inferring row under a ready prior status is left as it is.
	if err := st.Wingmen.Set(types.WingmanItem{Alias: "a2", Status: types.WingmanInferring}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := reconcile(st, dir); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	a1, _ := st.Wingmen.Get("a1")
	if a1.Status != types.WingmanError || a1.Error != modelFailedToLoadMessage {
		t.Fatalf("unexpected item: %+v", a1)
	}
	a2, _ := st.Wingmen.Get("a2")
	if a2.Status != types.WingmanInferring {
		t.Fatalf("inferring item changed: %+v", a2)
	}
}
