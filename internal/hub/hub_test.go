package hub

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPublishAndDrainDeliversToSubscriber(t *testing.T) {
	h := New("")
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	h.Publish(DownloadFrame([]string{"a"}))
	h.drain()

	select {
	case frame := <-ch:
		if _, ok := frame["DownloadItems"]; !ok {
			t.Fatalf("expected DownloadItems key, got %+v", frame)
		}
	default:
		t.Fatalf("expected a frame to be delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New("")
	id, ch := h.Subscribe()
	h.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
}

func TestDropsFramesWhenSubscriberBufferFull(t *testing.T) {
	h := New("")
	id, _ := h.Subscribe()
	defer h.Unsubscribe(id)

	for i := 0; i < outgoingBufferFrames+10; i++ {
		h.Publish(Frame{"n": i})
	}
	h.drain()
	// Must not block or panic; excess frames are simply dropped.
}

func TestRunWritesRollingLogWithMarkers(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "timing_metrics.json")
	h := New(logPath)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	h.Publish(Frame{"hello": "world"})
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("log is not a JSON array: %v\n%s", err, raw)
	}
	if len(entries) != 3 || entries[0]["marker"] != "start" || entries[1]["hello"] != "world" || entries[2]["marker"] != "stop" {
		t.Fatalf("unexpected log entries: %+v", entries)
	}
}
