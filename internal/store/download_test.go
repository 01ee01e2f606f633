package store

import (
	"testing"

	"wingmand/pkg/types"
)

func TestDownloadSetAndGet(t *testing.T) {
	s := openTestStore(t)
	d := types.DownloadItem{ModelRepo: "org/repo", FilePath: "model.gguf", Status: types.DownloadQueued}
	if err := s.Downloads.Set(d); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Downloads.Get("org/repo", "model.gguf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.DownloadQueued {
		t.Fatalf("status = %q, want %q", got.Status, types.DownloadQueued)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be stamped")
	}
}

func TestDownloadSetUpserts(t *testing.T) {
	s := openTestStore(t)
	d := types.DownloadItem{ModelRepo: "org/repo", FilePath: "model.gguf", Status: types.DownloadQueued}
	if err := s.Downloads.Set(d); err != nil {
		t.Fatalf("Set: %v", err)
	}
	d.Status = types.DownloadDownloading
	d.DownloadedBytes = 1024
	if err := s.Downloads.Set(d); err != nil {
		t.Fatalf("Set update: %v", err)
	}
	all, err := s.Downloads.GetAll("", "")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(all))
	}
	if all[0].Status != types.DownloadDownloading || all[0].DownloadedBytes != 1024 {
		t.Fatalf("unexpected row: %+v", all[0])
	}
}

func TestDownloadGetNextQueuedFIFO(t *testing.T) {
	s := openTestStore(t)
	for _, fp := range []string{"a.gguf", "b.gguf", "c.gguf"} {
		if err := s.Downloads.Set(types.DownloadItem{ModelRepo: "org/repo", FilePath: fp, Status: types.DownloadQueued}); err != nil {
			t.Fatalf("Set %s: %v", fp, err)
		}
	}
	d, ok, err := s.Downloads.GetNextQueued(types.DownloadDownloading)
	if err != nil || !ok {
		t.Fatalf("GetNextQueued: %v ok=%v", err, ok)
	}
	if d.FilePath != "a.gguf" {
		t.Fatalf("expected FIFO order, got %q", d.FilePath)
	}
	claimed, err := s.Downloads.Get("org/repo", "a.gguf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if claimed.Status != types.DownloadDownloading {
		t.Fatalf("expected claimed row transitioned to downloading, got %q", claimed.Status)
	}

	d2, ok, err := s.Downloads.GetNextQueued(types.DownloadDownloading)
	if err != nil || !ok {
		t.Fatalf("GetNextQueued second: %v ok=%v", err, ok)
	}
	if d2.FilePath != "b.gguf" {
		t.Fatalf("expected b.gguf next, got %q", d2.FilePath)
	}
}

func TestDownloadGetNextQueuedEmpty(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Downloads.GetNextQueued(types.DownloadDownloading)
	if err != nil {
		t.Fatalf("GetNextQueued: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false on empty queue")
	}
}

func TestDownloadReset(t *testing.T) {
	s := openTestStore(t)
	if err := s.Downloads.Set(types.DownloadItem{ModelRepo: "org/repo", FilePath: "a.gguf", Status: types.DownloadDownloading}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Downloads.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err := s.Downloads.Get("org/repo", "a.gguf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.DownloadQueued {
		t.Fatalf("expected reset to queued, got %q", got.Status)
	}
}

func TestDownloadRemove(t *testing.T) {
	s := openTestStore(t)
	if err := s.Downloads.Set(types.DownloadItem{ModelRepo: "org/repo", FilePath: "a.gguf", Status: types.DownloadComplete}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Downloads.Remove("org/repo", "a.gguf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, err := s.Downloads.Get("org/repo", "a.gguf")
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound after Remove, got %v", err)
	}
}

func TestDownloadGetAllFilters(t *testing.T) {
	s := openTestStore(t)
	if err := s.Downloads.Set(types.DownloadItem{ModelRepo: "org/a", FilePath: "x.gguf", Status: types.DownloadQueued}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Downloads.Set(types.DownloadItem{ModelRepo: "org/b", FilePath: "y.gguf", Status: types.DownloadQueued}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Downloads.GetAll("org/a", "")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 1 || got[0].ModelRepo != "org/a" {
		t.Fatalf("unexpected filtered result: %+v", got)
	}
}
