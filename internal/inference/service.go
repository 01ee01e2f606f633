// Package inference implements the Inference Supervisor (C3): a single
// worker that drains the inference queue, spawns the model runtime,
// enforces the single-active-inference invariant, and handles out-of-memory
// retries by halving the GPU layer count.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"wingmand/internal/download"
	"wingmand/internal/hub"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

var log *zerolog.Logger

// SetLogger installs a structured logger for the inference package.
func SetLogger(l zerolog.Logger) { log = &l }

func logf() *zerolog.Event {
	if log == nil {
		return nil
	}
	return log.Debug()
}

// Service is the Inference Supervisor.
type Service struct {
	store     *store.Store
	cfg       Config
	runtime   Runtime
	publisher Publisher
	onFatal   func()

	active atomic.Pointer[activeRun]
}

// activeRun tracks the currently running child, if any, so the cancellation
// loop can find and stop it without the main loop handing it off explicitly.
type activeRun struct {
	alias         string
	proc          RuntimeProcess
	stopRequested atomic.Bool
}

// New constructs a Service. onFatal is invoked when a fatal, non-retryable
// condition is hit (model-loading failure, or a violated single-active
// invariant); the Lifecycle Manager wires it to request shutdown. If pub is
// nil, published frames are discarded.
func New(st *store.Store, cfg Config, rt Runtime, pub Publisher, onFatal func()) *Service {
	if pub == nil {
		pub = noopPublisher{}
	}
	if onFatal == nil {
		onFatal = func() {}
	}
	return &Service{store: st, cfg: cfg.withDefaults(), runtime: rt, publisher: pub, onFatal: onFatal}
}

// Run launches the main loop and the concurrent cancellation loop, and
// blocks until ctx is cancelled and both have exited.
func (s *Service) Run(ctx context.Context) error {
	s.initialize()
	s.updateServiceStatus(types.AppReady, "", "")

	done := make(chan struct{})
	go func() {
		s.cancellationLoop(ctx)
		close(done)
	}()

	s.superviseLoop(ctx)
	<-done

	s.updateServiceStatus(types.AppStopping, "", "")
	s.updateServiceStatus(types.AppStopped, "", "")
	return nil
}

func (s *Service) initialize() {
	s.updateServiceStatus(types.AppStarting, "", "")
	if err := s.store.Wingmen.Reset("interrupted during start-up reconciliation"); err != nil && logf() != nil {
		logf().Err(err).Msg("inference: initialize Reset failed")
	}
}

// superviseLoop is the main loop described in §4.3 steps 1-4 and 6.
func (s *Service) superviseLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.QueueCheckInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if active, err := s.store.Wingmen.GetAllActive(); err != nil {
			if e := logf(); e != nil {
				e.Err(err).Msg("inference: GetAllActive failed")
			}
		} else if len(active) > 1 {
			s.fatal(fmt.Sprintf("invariant violated: %d active inference items", len(active)))
		} else if item, ok, err := s.store.Wingmen.GetNextQueued(types.WingmanPreparing); err != nil {
			if e := logf(); e != nil {
				e.Err(err).Msg("inference: GetNextQueued failed")
			}
		} else if ok {
			s.processItem(ctx, item)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processItem validates, prepares, and runs one WingmanItem to a terminal
// outcome (or until the cancellation loop claims it).
func (s *Service) processItem(ctx context.Context, item types.WingmanItem) {
	modelName := item.ModelRepo + ": " + item.FilePath
	dl, err := s.store.Downloads.Get(item.ModelRepo, item.FilePath)
	if err != nil || dl.Status != types.DownloadComplete {
		item.Status = types.WingmanError
		item.Error = "Model file does not exist: " + modelName
		s.setItem(item)
		return
	}

	s.updateServiceStatus(types.AppPreparing, item.Alias, "")

	if item.GPULayers == 0 {
		item.GPULayers = -1
	}
	gpuLayers := item.GPULayers
	if gpuLayers < 0 {
		gpuLayers = s.cfg.DefaultGPULayers
	}

	modelPath := download.OutputPath(download.ModelsDir(s.cfg.HomeDir), item.ModelRepo, item.FilePath)

	for {
		outcome, exitCode, err := s.runOnce(ctx, &item, modelPath, gpuLayers)
		if err != nil {
			item.Status = types.WingmanError
			item.Error = err.Error()
			s.setItem(item)
			return
		}
		switch outcome {
		case outcomeComplete:
			item.Status = types.WingmanComplete
			s.setItem(item)
			s.updateServiceStatus(types.AppReady, "", "")
			return
		case outcomeOutOfMemory:
			if gpuLayers <= 1 {
				item.Status = types.WingmanError
				item.Error = "Out of memory."
				s.setItem(item)
				s.updateServiceStatus(types.AppReady, "", "")
				return
			}
			gpuLayers /= 2
			continue
		case outcomeModelLoadFailed:
			msg := errorMessageForExit(exitCode, outcome)
			item.Status = types.WingmanError
			item.Error = msg
			s.setItem(item)
			s.updateServiceStatus(types.AppError, "", msg)
			s.fatal(msg)
			return
		default:
			msg := errorMessageForExit(exitCode, outcome)
			item.Status = types.WingmanError
			item.Error = msg
			s.setItem(item)
			s.updateServiceStatus(types.AppError, "", msg)
			return
		}
	}
}

// runOnce spawns the child once, transitions the row through
// preparing->inferring, and waits for either a natural exit or a
// cancellation-loop-driven stop. stopped-by-request is reported back as
// outcomeComplete with exitCode 0, matching the row mutation the
// cancellation loop already performed.
func (s *Service) runOnce(ctx context.Context, item *types.WingmanItem, modelPath string, gpuLayers int) (exitOutcome, int, error) {
	port := item.Port
	if port == 0 {
		port = 6567
	}
	if inUse, err := s.store.Wingmen.PortInUse(port, item.Alias); err == nil && inUse {
		return 0, 0, fmt.Errorf("port %d is already in use by another active inference", port)
	}

	params := SpawnParams{
		Port:        port,
		ContextSize: item.ContextSize,
		GPULayers:   gpuLayers,
		ModelPath:   modelPath,
		Alias:       item.Alias,
	}
	proc, err := s.runtime.Spawn(ctx, params)
	if err != nil {
		return 0, 0, err
	}

	item.Address = proc.Address()
	item.Port = proc.Port()
	item.PID = proc.PID()
	item.GPULayers = gpuLayers
	s.setItem(*item)

	run := &activeRun{alias: item.Alias, proc: proc}
	s.active.Store(run)
	defer s.active.CompareAndSwap(run, nil)

	// The row stays WingmanPreparing until the child actually answers.
	// Every non-zero exit §4.3 step 6 names (100 OOM, 1024 model load
	// failure, 1 bind/listen failure) fires before that point, so an early
	// exit here must be classified the same way a post-ready exit is rather
	// than reported as a generic spawn error.
	select {
	case <-proc.Ready():
	case <-proc.Done():
		if run.stopRequested.Load() {
			return outcomeComplete, 0, nil
		}
		code := proc.ExitCode()
		return classifyExitCode(code), code, nil
	case <-ctx.Done():
		_ = proc.Stop(context.Background())
		return outcomeComplete, 0, nil
	}

	item.Status = types.WingmanInferring
	s.setItem(*item)
	s.updateServiceStatus(types.AppInferring, item.Alias, "")

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	go s.reportMetrics(metricsCtx, item.Alias, proc)

	select {
	case <-proc.Done():
		if run.stopRequested.Load() {
			return outcomeComplete, 0, nil
		}
		code := proc.ExitCode()
		return classifyExitCode(code), code, nil
	case <-ctx.Done():
		_ = proc.Stop(context.Background())
		return outcomeComplete, 0, nil
	}
}

// cancellationLoop is the concurrent loop described in §4.3 step 5: it
// polls for rows the API has flipped to cancelling, stops the matching
// active child, transitions the row to complete, and sleeps PostStopDelay
// before allowing the supervisor to start another inference.
func (s *Service) cancellationLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cancelling, err := s.store.Wingmen.GetByStatus(types.WingmanCancelling)
		if err != nil {
			continue
		}
		for _, item := range cancelling {
			run := s.active.Load()
			if run == nil || run.alias != item.Alias {
				continue
			}
			run.stopRequested.Store(true)
			_ = run.proc.Stop(ctx)

			item.Status = types.WingmanComplete
			s.setItem(item)
			time.Sleep(s.cfg.PostStopDelay)
		}
	}
}

// reportMetrics polls the child's timing endpoint at MetricsIdleInterval
// while idle and MetricsActiveInterval once tokens are flowing, publishing
// each report through the Metrics Bus.
func (s *Service) reportMetrics(ctx context.Context, alias string, proc RuntimeProcess) {
	client := &http.Client{Timeout: 2 * time.Second}
	interval := s.cfg.MetricsIdleInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		timing, active, err := fetchTiming(ctx, client, proc.TimingURL())
		if err != nil {
			continue
		}
		s.publisher.Publish(hub.TimingFrame(alias, timing))
		want := s.cfg.MetricsIdleInterval
		if active {
			want = s.cfg.MetricsActiveInterval
		}
		if want != interval {
			interval = want
			ticker.Reset(interval)
		}
	}
}

func fetchTiming(ctx context.Context, client *http.Client, url string) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("timing endpoint status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, err
	}
	var parsed struct {
		PredictedPerSecond float64 `json:"predicted_per_second"`
	}
	active := false
	if json.Unmarshal(body, &parsed) == nil {
		active = parsed.PredictedPerSecond > 0
	}
	return json.RawMessage(body), active, nil
}

func (s *Service) setItem(item types.WingmanItem) {
	if err := s.store.Wingmen.Set(item); err != nil && logf() != nil {
		logf().Err(err).Str("alias", item.Alias).Msg("inference: failed to persist row")
		return
	}
	all, err := s.store.Wingmen.GetAll()
	if err != nil {
		return
	}
	s.publisher.Publish(hub.WingmanFrame(all))
}

func (s *Service) updateServiceStatus(status types.AppServiceStatus, alias, errMsg string) {
	appItem, err := s.store.Apps.GetWingmanServiceApp()
	if err != nil {
		return
	}
	appItem.Status = status
	if errMsg != "" {
		appItem.Error = errMsg
	}
	if alias != "" {
		appItem.Alias = alias
	}
	if err := s.store.Apps.SetWingmanServiceApp(appItem); err != nil && logf() != nil {
		logf().Err(err).Msg("inference: failed to publish service status")
	}
	s.publisher.Publish(hub.AppFrame([]types.WingmanServiceAppItem{appItem}))
}

func (s *Service) fatal(msg string) {
	if e := logf(); e != nil {
		e.Str("error", msg).Msg("inference: fatal condition, requesting shutdown")
	}
	s.onFatal()
}
