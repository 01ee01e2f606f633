package store

import (
	"testing"

	"wingmand/pkg/types"
)

func TestAppStoreDownloadServerRoundTrip(t *testing.T) {
	s := openTestStore(t)
	item := types.DownloadServerAppItem{Status: types.AppReady}
	if err := s.Apps.SetDownloadServerApp(item); err != nil {
		t.Fatalf("SetDownloadServerApp: %v", err)
	}
	got, err := s.Apps.GetDownloadServerApp()
	if err != nil {
		t.Fatalf("GetDownloadServerApp: %v", err)
	}
	if got.Status != types.AppReady {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestAppStoreDownloadServerDefaultsToStopped(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Apps.GetDownloadServerApp()
	if err != nil {
		t.Fatalf("GetDownloadServerApp: %v", err)
	}
	if got.Status != types.AppStopped {
		t.Fatalf("expected AppStopped default, got %q", got.Status)
	}
}

func TestAppStoreWingmanServiceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	item := types.WingmanServiceAppItem{Status: types.AppInferring, Alias: "llama3"}
	if err := s.Apps.SetWingmanServiceApp(item); err != nil {
		t.Fatalf("SetWingmanServiceApp: %v", err)
	}
	got, err := s.Apps.GetWingmanServiceApp()
	if err != nil {
		t.Fatalf("GetWingmanServiceApp: %v", err)
	}
	if got.Status != types.AppInferring || got.Alias != "llama3" {
		t.Fatalf("unexpected item: %+v", got)
	}
}
