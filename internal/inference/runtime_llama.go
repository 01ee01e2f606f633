//go:build llama

package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaRuntime is the in-process alternative to subprocessRuntime: it loads
// the GGUF file into the current process via CGO instead of spawning a
// child. It still has to answer HTTP, since the rest of the package only
// knows how to poll a RuntimeProcess's TimingURL and the item's Address/Port
// are handed back to callers as a real endpoint — so Spawn starts a small
// local HTTP server in front of the loaded model rather than leaving it idle
// behind Address()/Port() until Stop. Selected at build time with the
// "llama" tag, mirroring how the teacher keeps its CGO adapter behind the
// same tag in internal/manager.
type llamaRuntime struct {
	ctxSize int
	threads int
}

// NewLlamaRuntime constructs a Runtime that loads models in-process with
// go-llama.cpp. threads defaults to 4 when <= 0.
func NewLlamaRuntime(threads int) Runtime {
	if threads <= 0 {
		threads = 4
	}
	return &llamaRuntime{threads: threads}
}

type llamaHandle struct {
	model   *llama.LLama
	threads int
	port    int
	srv     *http.Server

	mu       sync.Mutex
	stopped  bool
	done     chan struct{}
	ready    chan struct{}
	exitCode atomic.Int32

	lastTokensPerSecond atomic.Value // float64
}

func (h *llamaHandle) Address() string        { return fmt.Sprintf("http://127.0.0.1:%d", h.port) }
func (h *llamaHandle) Port() int              { return h.port }
func (h *llamaHandle) PID() int               { return 0 }
func (h *llamaHandle) Done() <-chan struct{}  { return h.done }
func (h *llamaHandle) Ready() <-chan struct{} { return h.ready }
func (h *llamaHandle) ExitCode() int          { return int(h.exitCode.Load()) }
func (h *llamaHandle) TimingURL() string      { return h.Address() + "/timing" }

// Stop shuts down the local HTTP server and frees the loaded model. There is
// no child process to signal; the invariant the supervisor relies on (Done
// closes once, Stop is idempotent) still holds.
func (h *llamaHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	alreadyStopped := h.stopped
	h.stopped = true
	h.mu.Unlock()
	if alreadyStopped {
		return nil
	}
	if h.srv != nil {
		_ = h.srv.Shutdown(ctx)
	}
	if h.model != nil {
		h.model.Free()
	}
	close(h.done)
	return nil
}

// Spawn loads params.ModelPath into the current process and starts an HTTP
// server on params.Port serving /model.json (health), /timing (token-rate
// polled by reportMetrics), and /completion (actual generation). Readiness
// closes as soon as the model is loaded and the listener is up, since there
// is no remote process to poll.
func (r *llamaRuntime) Spawn(ctx context.Context, params SpawnParams) (RuntimeProcess, error) {
	ctxSize := params.ContextSize
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	m, err := llama.New(params.ModelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", params.ModelPath, err)
	}

	h := &llamaHandle{
		model:   m,
		threads: r.threads,
		port:    params.Port,
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
	}
	h.lastTokensPerSecond.Store(float64(0))

	mux := http.NewServeMux()
	mux.HandleFunc("/model.json", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/timing", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{
			"predicted_per_second": h.lastTokensPerSecond.Load().(float64),
		})
	})
	mux.HandleFunc("/completion", h.handleCompletion)
	h.srv = &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", params.Port), Handler: mux}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", h.srv.Addr)
	if err != nil {
		m.Free()
		return nil, fmt.Errorf("bind %s: %w", h.srv.Addr, err)
	}

	go func() {
		err := h.srv.Serve(ln)
		h.mu.Lock()
		already := h.stopped
		h.stopped = true
		h.mu.Unlock()
		if !already {
			if err != nil && err != http.ErrServerClosed {
				h.exitCode.Store(1)
			}
			if h.model != nil {
				h.model.Free()
			}
			close(h.done)
		}
	}()

	close(h.ready)
	return h, nil
}

// completionRequest is the JSON body /completion accepts: a prompt plus the
// same generation knobs the teacher's adapter_llama.go maps onto
// llama.PredictOption.
type completionRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	TopK        int     `json:"top_k"`
	Seed        int     `json:"seed"`
}

func (h *llamaHandle) handleCompletion(w http.ResponseWriter, req *http.Request) {
	var cr completionRequest
	if err := json.NewDecoder(req.Body).Decode(&cr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	maxTokens := cr.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	var tokenCount int
	h.model.SetTokenCallback(func(tok string) bool {
		tokenCount++
		select {
		case <-req.Context().Done():
			return false
		default:
			return true
		}
	})

	opts := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(h.threads),
	}
	if cr.Temperature > 0 {
		opts = append(opts, llama.SetTemperature(cr.Temperature))
	}
	if cr.TopP > 0 {
		opts = append(opts, llama.SetTopP(cr.TopP))
	}
	if cr.TopK > 0 {
		opts = append(opts, llama.SetTopK(cr.TopK))
	}
	if cr.Seed != 0 {
		opts = append(opts, llama.SetSeed(cr.Seed))
	}

	start := time.Now()
	text, err := h.model.Predict(cr.Prompt, opts...)
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		h.lastTokensPerSecond.Store(float64(tokenCount) / elapsed)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"content": text})
}
