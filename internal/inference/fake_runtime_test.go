package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// fakeProcess is a controllable RuntimeProcess for deterministic exit-code
// tests: Exit(code) simulates the child terminating on its own; Stop
// behaves like a graceful shutdown that always exits 0. By default it is
// ready immediately, the same as a subprocess whose health check already
// answers by the time Spawn returns; newFakeProcessPending builds one whose
// Ready() channel never closes, for exercising the exit-before-ready path.
type fakeProcess struct {
	mu       sync.Mutex
	address  string
	port     int
	done     chan struct{}
	ready    chan struct{}
	exitCode int
	exited   bool
	srv      *httptest.Server
}

func newFakeProcess() *fakeProcess {
	p := newFakeProcessPending()
	close(p.ready)
	return p
}

func newFakeProcessPending() *fakeProcess {
	p := &fakeProcess{done: make(chan struct{}), ready: make(chan struct{})}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.json":
			w.WriteHeader(http.StatusOK)
		case "/timing":
			json.NewEncoder(w).Encode(map[string]any{"predicted_per_second": 0.0})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	p.address = p.srv.URL
	return p
}

func (p *fakeProcess) Address() string        { return p.address }
func (p *fakeProcess) Port() int              { return p.port }
func (p *fakeProcess) PID() int               { return 4242 }
func (p *fakeProcess) Done() <-chan struct{}  { return p.done }
func (p *fakeProcess) Ready() <-chan struct{} { return p.ready }
func (p *fakeProcess) TimingURL() string      { return p.address + "/timing" }
func (p *fakeProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *fakeProcess) Exit(code int) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	p.exitCode = code
	p.mu.Unlock()
	close(p.done)
}

func (p *fakeProcess) Stop(ctx context.Context) error {
	p.Exit(0)
	return nil
}

func (p *fakeProcess) Close() { p.srv.Close() }

// fakeRuntime hands out a pre-built fakeProcess per Spawn call, recording
// the params it was given for assertions.
type fakeRuntime struct {
	mu          sync.Mutex
	procs       []*fakeProcess
	params      []SpawnParams
	nextErr     error
	nextPending bool
}

func (r *fakeRuntime) Spawn(ctx context.Context, params SpawnParams) (RuntimeProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nextErr != nil {
		err := r.nextErr
		r.nextErr = nil
		return nil, err
	}
	var p *fakeProcess
	if r.nextPending {
		p = newFakeProcessPending()
		r.nextPending = false
	} else {
		p = newFakeProcess()
	}
	r.procs = append(r.procs, p)
	r.params = append(r.params, params)
	return p, nil
}

// queuePending makes the next Spawn hand out a process that has not yet
// signaled Ready, so a test can simulate an exit-before-ready failure.
func (r *fakeRuntime) queuePending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPending = true
}

func (r *fakeRuntime) last() *fakeProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.procs) == 0 {
		return nil
	}
	return r.procs[len(r.procs)-1]
}

func (r *fakeRuntime) lastParams() SpawnParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params[len(r.params)-1]
}

func (r *fakeRuntime) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}
