package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// outgoingBufferFrames bounds a subscriber's pending-frame backlog. The
// design target is ~128 MiB of outgoing buffer; at an average frame size on
// the order of a few KB this comes out in the low thousands of frames, so a
// fixed channel capacity is used rather than a byte-accounted ring.
const outgoingBufferFrames = 2048

// drainInterval is the cadence at which queued frames are flushed to
// subscribers and to the rolling log file.
const drainInterval = 1 * time.Second

var log *zerolog.Logger

// SetLogger installs a structured logger for the hub package. Without one,
// the hub is silent except for its Prometheus counters.
func SetLogger(l zerolog.Logger) { log = &l }

func logEvent() *zerolog.Event {
	if log == nil {
		return nil
	}
	return log.Debug()
}

// subscriber is one live subscription channel plus the metadata needed to
// label its drop counter and close it on unsubscribe.
type subscriber struct {
	id string
	ch chan Frame
}

// Hub is the single owner of the pending-frame queue and the subscriber
// set. Publish, Subscribe and Unsubscribe are safe to call from any
// goroutine: each holds mu while it touches the pending queue or the
// subscriber map, and drain holds mu while it fans a frame out, so
// Unsubscribe never closes a channel a send is in flight on. Only Run's own
// goroutine writes to the log file.
type Hub struct {
	mu          sync.Mutex
	pending     []Frame
	subscribers map[string]*subscriber

	logPath string
	logFile *os.File
	wroteAny bool
}

// New constructs a Hub that rolls its log to logPath. If logPath is empty,
// frames are still fanned out to subscribers but nothing is written to disk.
func New(logPath string) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		logPath:     logPath,
	}
}

// Publish enqueues frame for the next drain. Non-blocking; safe from any
// goroutine including HTTP handlers and child-process watchers.
func (h *Hub) Publish(frame Frame) {
	h.mu.Lock()
	h.pending = append(h.pending, frame)
	h.mu.Unlock()
	framesPublishedTotal.Inc()
}

// Subscribe registers a new live subscriber and returns its id (for
// Unsubscribe) and the channel it should read frames from. The channel is
// never closed by Publish/drain; Unsubscribe closes it.
func (h *Hub) Subscribe() (string, <-chan Frame) {
	id := uuid.NewString()
	ch := make(chan Frame, outgoingBufferFrames)
	h.mu.Lock()
	h.subscribers[id] = &subscriber{id: id, ch: ch}
	h.mu.Unlock()
	subscribersGauge.Set(float64(len(h.subscribers)))
	return id, ch
}

// Unsubscribe removes and closes the subscriber's channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()
	if ok {
		close(sub.ch)
	}
	subscribersGauge.Set(float64(count))
}

// Run drains the pending queue at drainInterval until ctx is cancelled. It
// opens the rolling log file (creating its directory) when it starts and
// writes the closing marker on exit, per the start/stop bracketed JSON array
// in the design.
func (h *Hub) Run(ctx context.Context) error {
	if h.logPath != "" {
		if err := h.openLog(); err != nil {
			return fmt.Errorf("open metrics log: %w", err)
		}
		defer h.closeLog()
	}

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.drain()
			return nil
		case <-ticker.C:
			h.drain()
		}
	}
}

func (h *Hub) drain() {
	h.mu.Lock()
	frames := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, frame := range frames {
		h.appendLog(frame)
		// Sends are non-blocking, so holding mu here only excludes a
		// concurrent Unsubscribe from closing s.ch mid-send.
		h.mu.Lock()
		for _, s := range h.subscribers {
			select {
			case s.ch <- frame:
			default:
				framesDroppedTotal.WithLabelValues(s.id).Inc()
				if e := logEvent(); e != nil {
					e.Str("subscriber", s.id).Msg("hub: dropped frame, subscriber buffer full")
				}
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) openLog() error {
	if err := os.MkdirAll(filepath.Dir(h.logPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(h.logPath)
	if err != nil {
		return err
	}
	h.logFile = f
	if _, err := f.WriteString("[\n"); err != nil {
		return err
	}
	return h.appendLogRaw(map[string]any{"marker": "start", "time": time.Now().UTC()})
}

func (h *Hub) closeLog() {
	if h.logFile == nil {
		return
	}
	_ = h.appendLogRaw(map[string]any{"marker": "stop", "time": time.Now().UTC()})
	_, _ = h.logFile.WriteString("\n]\n")
	_ = h.logFile.Close()
}

func (h *Hub) appendLog(frame Frame) {
	if h.logFile == nil {
		return
	}
	_ = h.appendLogRaw(frame)
}

func (h *Hub) appendLogRaw(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	prefix := ",\n"
	if !h.wroteAny {
		prefix = ""
		h.wroteAny = true
	}
	_, err = h.logFile.WriteString(prefix + string(raw))
	return err
}
