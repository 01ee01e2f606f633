package inference

import "context"

// SpawnParams are the arguments passed to a freshly spawned model runtime
// subprocess, per the external contract in §6: it is invoked with
// --port, --ctx-size, --n-gpu-layers, --model, --alias.
type SpawnParams struct {
	Port        int
	ContextSize int
	GPULayers   int
	ModelPath   string
	Alias       string
}

// RuntimeProcess is a handle to one spawned model runtime child. Done closes
// when the process has exited, by any means; ExitCode is only meaningful
// after Done has closed. Ready closes once the child's HTTP API has come up;
// a process can close Done before Ready ever closes, which is exactly the
// early-failure case (OOM or a bad model file during load) callers must
// race for rather than assume away.
type RuntimeProcess interface {
	Address() string
	Port() int
	PID() int
	Done() <-chan struct{}
	Ready() <-chan struct{}
	ExitCode() int
	// TimingURL returns the local endpoint the metrics reporter polls for
	// token-timing information while this process is alive.
	TimingURL() string
	// Stop requests termination (SIGTERM, then a forced kill after a grace
	// period) and blocks until the process has actually exited. Idempotent.
	Stop(ctx context.Context) error
}

// Runtime spawns model runtime subprocesses.
type Runtime interface {
	// Spawn starts a child with params and returns as soon as it has been
	// launched, without waiting for it to become ready. Callers must select
	// on the returned RuntimeProcess's Ready() and Done() to find out
	// whether it came up or exited first.
	Spawn(ctx context.Context, params SpawnParams) (RuntimeProcess, error)
}
